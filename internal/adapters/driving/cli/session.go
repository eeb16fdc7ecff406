package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sessionOwner int64
	sessionID    string
	sessionPurge bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage indexed sessions",
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove a session from both indexes",
	Args:  cobra.NoArgs,
	RunE:  runSessionDelete,
}

func init() {
	sessionDeleteCmd.Flags().Int64Var(&sessionOwner, "owner", 0, "owner id (required)")
	sessionDeleteCmd.Flags().StringVar(&sessionID, "session", "", "session id (required)")
	sessionDeleteCmd.Flags().BoolVar(&sessionPurge, "purge-summary", false, "also delete the stored summary")
	_ = sessionDeleteCmd.MarkFlagRequired("owner")
	_ = sessionDeleteCmd.MarkFlagRequired("session")
	sessionCmd.AddCommand(sessionDeleteCmd)
	rootCmd.AddCommand(sessionCmd)
}

func runSessionDelete(cmd *cobra.Command, _ []string) error {
	a, err := requireEngine()
	if err != nil {
		return err
	}

	if err := a.Indexing.DeleteSession(cmd.Context(), sessionOwner, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if sessionPurge {
		if err := a.Summaries.Delete(cmd.Context(), sessionOwner, sessionID); err != nil {
			return fmt.Errorf("failed to delete summary: %w", err)
		}
	}
	cmd.Printf("Deleted session %s\n", sessionID)
	return nil
}
