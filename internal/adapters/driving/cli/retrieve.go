package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var (
	retrieveOwner    int64
	retrieveTopK     int
	retrieveDateHint string
	retrieveJSON     bool
	retrievePick     int
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve memories for a query",
	Long: `Queries the keyword and vector indexes concurrently and fuses both
rankings into one list of session fragments with a confidence bucket.

Use --pick to apply the selection policy and show which documents would be
handed to prompt construction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().Int64Var(&retrieveOwner, "owner", 0, "owner id to search (required)")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "n", 0, "number of documents (default from fusion.top_k)")
	retrieveCmd.Flags().StringVar(&retrieveDateHint, "date", "", "date of the active session (YYMMDD)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output results as JSON")
	retrieveCmd.Flags().IntVar(&retrievePick, "pick", 0, "apply the selection policy and pick N documents")
	_ = retrieveCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	req := domain.RetrieveRequest{
		Query:           strings.Join(args, " "),
		OwnerID:         retrieveOwner,
		SessionDateHint: domain.SessionDate(retrieveDateHint),
		TopK:            retrieveTopK,
	}
	docs, err := a.Retrieval.Retrieve(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("retrieve failed: %w", err)
	}

	if retrievePick > 0 {
		selection := a.Select(docs, retrievePick)
		if retrieveJSON {
			return outputJSON(cmd, selection)
		}
		return outputSelection(cmd, selection)
	}

	if retrieveJSON {
		return outputJSON(cmd, docs)
	}
	return outputRanked(cmd, docs)
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputRanked(cmd *cobra.Command, docs []domain.RankedDocument) error {
	if len(docs) == 0 {
		cmd.Println("No memories found.")
		return nil
	}

	p := newPrinter(cmd.OutOrStdout())
	cmd.Println(p.Title("Results:"))
	cmd.Println()
	for i := range docs {
		printDocument(cmd, p, i+1, docs[i])
	}
	return nil
}

func outputSelection(cmd *cobra.Command, sel domain.Selection) error {
	if len(sel.Picked) == 0 {
		cmd.Println("No memories selected.")
		return nil
	}

	p := newPrinter(cmd.OutOrStdout())
	cmd.Println(p.Title("Selected:"))
	cmd.Println()
	for i := range sel.Picked {
		printDocument(cmd, p, i+1, sel.Picked[i])
	}
	cmd.Println(p.Muted(fmt.Sprintf("high=%d middle=%d low=%d",
		len(sel.High), len(sel.Middle), len(sel.Low))))
	return nil
}

// printDocument writes: [N] [bucket] doc_id (score)
func printDocument(cmd *cobra.Command, p *printer, n int, doc domain.RankedDocument) {
	cmd.Printf("  [%d] %s %s (%.6f)\n", n, p.Bucket(doc.Bucket), doc.DocID, doc.Score)

	date := doc.SessionDate.String()
	if date == "" {
		date = "-"
	}
	cmd.Println(p.Muted(fmt.Sprintf("      session %s  date %s  evidence %d  types %s  sources %s",
		doc.SessionID, date, doc.EvidenceCount, joinTypes(doc.FragmentTypes), joinSources(doc.Sources))))
}

func joinTypes(types []domain.FragmentType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ",")
}

func joinSources(sources []domain.Source) string {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
