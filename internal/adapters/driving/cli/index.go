package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/core/domain"
)

var (
	indexOwner   int64
	indexSession string
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index a stored session summary",
	Long: `Decomposes a stored session summary into fragments (summary, key sentence,
all keywords, each keyword) and writes them to both indexes. Fragments
already indexed for the session are replaced.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().Int64Var(&indexOwner, "owner", 0, "owner id (required)")
	indexCmd.Flags().StringVar(&indexSession, "session", "", "session id (required)")
	_ = indexCmd.MarkFlagRequired("owner")
	_ = indexCmd.MarkFlagRequired("session")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	result, err := a.Indexing.IndexSession(cmd.Context(), indexOwner, indexSession)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no summary stored for session %s", indexSession)
	}
	printIndexResult(cmd, result)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	return nil
}

func printIndexResult(cmd *cobra.Command, result domain.IndexResult) {
	cmd.Printf("Indexed session %s: %d of %d fragments written\n",
		result.SessionID, result.Written, len(result.DocIDs))
	for _, f := range result.Failures {
		cmd.Printf("  failed: %v\n", f)
	}
	for _, err := range result.Skipped {
		cmd.Printf("  skipped: %v\n", err)
	}
}
