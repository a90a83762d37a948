package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/easeaico/style-echo/internal/revision"
	"github.com/easeaico/style-echo/internal/types"
)

// NewRevisionsCmd groups the revision ledger subcommands.
func NewRevisionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "revisions",
		Aliases: []string{"revision"},
		Short:   "Manage content revisions",
	}
	cmd.AddCommand(newRevisionsListCmd(), newRevisionsShowCmd(), newRevisionsRestoreCmd(), newRevisionsDeleteCmd())
	return cmd
}

func newRevisionsListCmd() *cobra.Command {
	var subjectID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List revisions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			revs, err := a.ledger.List(cmd.Context(), a.owner, subjectID)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), revs)
			}
			if len(revs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No revisions")
				return nil
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "ID\tSUBJECT\tKIND\tCREATED\tCHANGE\tCONTENT\n")
			for _, rev := range revs {
				sum := revision.Diff(rev)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t+%d/-%d\t%s\n",
					rev.ID, rev.SubjectID, rev.Kind, formatTime(rev.CreatedAt), sum.LinesAdded, sum.LinesRemoved, preview(rev.Content, 40))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&subjectID, "subject", "", "Only list revisions of this subject")
	return cmd
}

func newRevisionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a revision and its change summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			rev, err := a.ledger.Get(cmd.Context(), a.owner, args[0])
			if err != nil {
				return err
			}
			sum := revision.Diff(*rev)
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), struct {
					*types.Revision
					Diff revision.Summary `json:"diff"`
				}{rev, sum})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:       %s\n", rev.ID)
			fmt.Fprintf(out, "Subject:  %s\n", rev.SubjectID)
			fmt.Fprintf(out, "Kind:     %s\n", rev.Kind)
			fmt.Fprintf(out, "Created:  %s\n", formatTime(rev.CreatedAt))
			fmt.Fprintf(out, "Changed:  %t (+%d/-%d lines)\n", sum.Changed, sum.LinesAdded, sum.LinesRemoved)
			fmt.Fprintf(out, "\n--- previous\n%s\n\n+++ content\n%s\n", rev.PreviousContent, rev.Content)
			return nil
		},
	}
}

func newRevisionsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id>",
		Short: "Set the subject's content back to a revision",
		Long: `Overwrite the subject's current content with the content recorded by
the revision. The overwritten content is kept as a new manual revision.

Examples:
  styleecho revisions restore <id>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			content, err := a.ledger.Restore(cmd.Context(), a.owner, args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"revision_id": args[0], "content": content})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored revision %s\n", args[0])
			return nil
		},
	}
}

func newRevisionsDeleteCmd() *cobra.Command {
	var (
		ids []string
		all bool
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete selected revisions, or all of them",
		Long: `Delete revisions permanently.

Examples:
  styleecho revisions delete --ids <id>,<id>
  styleecho revisions delete --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if all == (len(ids) > 0) {
				return fmt.Errorf("pass either --ids or --all")
			}
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			var n int64
			if all {
				n, err = a.ledger.DeleteAll(cmd.Context(), a.owner)
			} else {
				n, err = a.ledger.DeleteSelected(cmd.Context(), a.owner, ids)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d revision(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "Comma-separated revision ids")
	cmd.Flags().BoolVar(&all, "all", false, "Delete every revision you own")
	return cmd
}
