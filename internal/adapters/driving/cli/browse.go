package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/recall/internal/adapters/driving/tui"
)

var (
	browseOwner int64
	browseTopK  int
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse an owner's memories interactively",
	Long: `Opens a terminal UI to run queries against one owner's memories, inspect
the evidence behind each result and delete sessions.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().Int64Var(&browseOwner, "owner", 0, "owner id to browse (required)")
	browseCmd.Flags().IntVarP(&browseTopK, "top-k", "n", 0, "number of documents (default from fusion.top_k)")
	_ = browseCmd.MarkFlagRequired("owner")
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}
	if !isTerminal(cmd.OutOrStdout()) {
		return errors.New("browse needs an interactive terminal; use retrieve instead")
	}

	app, err := tui.NewApp(&tui.Ports{
		Retrieval: a.Retrieval,
		Indexing:  a.Indexing,
	}, tui.Options{OwnerID: browseOwner, TopK: browseTopK})
	if err != nil {
		return err
	}
	return app.WithContext(cmd.Context()).Run()
}
