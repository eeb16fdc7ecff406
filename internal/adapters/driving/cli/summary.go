package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var (
	summaryOwner       int64
	summarySession     string
	summaryDate        string
	summaryText        string
	summaryKeySentence string
	summaryKeywords    string
	summaryIndex       bool
	summaryJSON        bool
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Manage session summaries",
	Long: `Session summaries are the input of the indexing pipeline. They are stored
in the summary database and indexed with "recall index".`,
}

var summaryPutCmd = &cobra.Command{
	Use:   "put",
	Short: "Store a session summary",
	Long: `Store or replace the summary of a session.

Keywords accept a JSON array ('["a","b"]'), a comma separated list, or a
single keyword.`,
	Args: cobra.NoArgs,
	RunE: runSummaryPut,
}

var summaryGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show a session summary",
	Args:  cobra.NoArgs,
	RunE:  runSummaryGet,
}

var summaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List an owner's session summaries",
	Args:  cobra.NoArgs,
	RunE:  runSummaryList,
}

func init() {
	for _, c := range []*cobra.Command{summaryPutCmd, summaryGetCmd, summaryListCmd} {
		c.Flags().Int64Var(&summaryOwner, "owner", 0, "owner id (required)")
		_ = c.MarkFlagRequired("owner")
	}
	for _, c := range []*cobra.Command{summaryPutCmd, summaryGetCmd} {
		c.Flags().StringVar(&summarySession, "session", "", "session id (required)")
		_ = c.MarkFlagRequired("session")
	}
	summaryPutCmd.Flags().StringVar(&summaryDate, "date", "", "session date (YYMMDD, default from the session id)")
	summaryPutCmd.Flags().StringVar(&summaryText, "summary", "", "summary text")
	summaryPutCmd.Flags().StringVar(&summaryKeySentence, "key-sentence", "", "key sentence")
	summaryPutCmd.Flags().StringVar(&summaryKeywords, "keywords", "", "keywords")
	summaryPutCmd.Flags().BoolVar(&summaryIndex, "index", false, "index the session after storing it")
	summaryGetCmd.Flags().BoolVar(&summaryJSON, "json", false, "output as JSON")
	summaryListCmd.Flags().BoolVar(&summaryJSON, "json", false, "output as JSON")

	summaryCmd.AddCommand(summaryPutCmd)
	summaryCmd.AddCommand(summaryGetCmd)
	summaryCmd.AddCommand(summaryListCmd)
	rootCmd.AddCommand(summaryCmd)
}

func runSummaryPut(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	date := domain.SessionDate(summaryDate)
	if date != "" && !date.IsValid() {
		return fmt.Errorf("%w: date %q is not YYMMDD", domain.ErrInvalidInput, summaryDate)
	}
	if strings.TrimSpace(summaryText) == "" && strings.TrimSpace(summaryKeySentence) == "" &&
		strings.TrimSpace(summaryKeywords) == "" {
		return fmt.Errorf("%w: nothing to store, pass --summary, --key-sentence or --keywords", domain.ErrInvalidInput)
	}

	keywords, err := domain.ParseKeywords(summaryKeywords)
	if err != nil {
		return err
	}

	record := domain.SummaryRecord{
		OwnerID:     summaryOwner,
		SessionID:   summarySession,
		SessionDate: date,
		Summary:     summaryText,
		KeySentence: summaryKeySentence,
		Keywords:    keywords,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := a.Summaries.Save(cmd.Context(), record); err != nil {
		return fmt.Errorf("failed to store summary: %w", err)
	}
	cmd.Printf("Stored summary for session %s (%d keywords)\n", summarySession, len(keywords))

	if !summaryIndex {
		return nil
	}
	result, err := a.Indexing.IndexSession(cmd.Context(), summaryOwner, summarySession)
	printIndexResult(cmd, result)
	return err
}

func runSummaryGet(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	record, err := a.Summaries.Get(cmd.Context(), summaryOwner, summarySession)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no summary for session %s", summarySession)
	}
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	if summaryJSON {
		return outputJSON(cmd, record)
	}
	printSummary(cmd, *record)
	return nil
}

func runSummaryList(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	records, err := a.Summaries.List(cmd.Context(), summaryOwner)
	if err != nil {
		return fmt.Errorf("failed to list summaries: %w", err)
	}

	if summaryJSON {
		return outputJSON(cmd, records)
	}
	if len(records) == 0 {
		cmd.Println("No summaries found.")
		return nil
	}
	for i := range records {
		date := records[i].SessionDate.String()
		if date == "" {
			date = "-"
		}
		cmd.Printf("  %s  %s  %s\n", records[i].SessionID, date, truncate(records[i].Summary, 60))
	}
	return nil
}

func printSummary(cmd *cobra.Command, r domain.SummaryRecord) {
	cmd.Printf("Session:      %s\n", r.SessionID)
	cmd.Printf("Owner:        %d\n", r.OwnerID)
	if r.SessionDate != "" {
		cmd.Printf("Date:         %s\n", r.SessionDate)
	}
	cmd.Printf("Summary:      %s\n", r.Summary)
	cmd.Printf("Key sentence: %s\n", r.KeySentence)
	cmd.Printf("Keywords:     %s\n", strings.Join(r.Keywords, ", "))
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
