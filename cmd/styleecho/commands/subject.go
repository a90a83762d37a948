package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSubjectCmd groups the subject (document or chapter) subcommands.
func NewSubjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subject",
		Short: "Manage documents whose content revisions track",
	}
	cmd.AddCommand(newSubjectAddCmd(), newSubjectListCmd(), newSubjectShowCmd())
	return cmd
}

func newSubjectAddCmd() *cobra.Command {
	var title, file string
	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Create a subject",
		Long: `Create a subject with optional initial content.

Examples:
  styleecho subject add --title "Chapter 1" --file ch1.md
  styleecho subject add --title "Blurb" "First draft of the blurb"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readText(cmd, args, file)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			subject, err := a.ledger.CreateSubject(cmd.Context(), a.owner, title, content)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), subject)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created subject %s\n", subject.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Subject title")
	cmd.Flags().StringVar(&file, "file", "", "Read the initial content from a file")
	return cmd
}

func newSubjectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			subjects, err := a.ledger.Subjects(cmd.Context(), a.owner)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), subjects)
			}
			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "ID\tTITLE\tUPDATED\tCONTENT\n")
			for _, s := range subjects {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, preview(s.Title, 30), formatTime(s.UpdatedAt), preview(s.Content, 50))
			}
			return w.Flush()
		},
	}
}

func newSubjectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a subject's current content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), needs{db: true})
			if err != nil {
				return err
			}
			defer a.Close()

			subject, err := a.ledger.Subject(cmd.Context(), a.owner, args[0])
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), subject)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n\n%s\n", subject.Title, subject.ID, subject.Content)
			return nil
		},
	}
}
