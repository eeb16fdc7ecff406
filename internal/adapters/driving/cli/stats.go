package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index sizes",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	stats, err := a.Indexing.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}
	if statsJSON {
		return outputJSON(cmd, stats)
	}

	current := a.Current()
	cmd.Printf("Lexical fragments:  %d (%s)\n", stats.Lexical, current.Lexical.Backend.Description())
	cmd.Printf("Semantic fragments: %d (%s)\n", stats.Semantic, a.EmbeddingModel)
	return nil
}
