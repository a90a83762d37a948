package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historySession string

// NewHistoryCmd groups session history inspection.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or clear a session's conversation history",
		Long: `Show or clear the bounded conversation window of a session. Sessions
outlive a single run only when REDIS_URL is set.

Examples:
  styleecho history show --session draft-1
  styleecho history clear --session draft-1`,
	}
	cmd.PersistentFlags().StringVar(&historySession, "session", "", "Session id")
	_ = cmd.MarkPersistentFlagRequired("session")

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the session's turns, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), needs{})
			if err != nil {
				return err
			}
			defer a.Close()

			turns, err := a.service.History(cmd.Context(), historySession)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), turns)
			}
			if len(turns) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No history for session %s\n", historySession)
				return nil
			}
			for _, turn := range turns {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", formatTime(turn.CreatedAt), turn.Role, turn.Content)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "clear",
		Short: "Forget the session's turns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), needs{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.service.ClearHistory(cmd.Context(), historySession); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared history for session %s\n", historySession)
			return nil
		},
	})
	return cmd
}
