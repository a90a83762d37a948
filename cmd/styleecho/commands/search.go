package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Rank style profiles by similarity to a query",
		Long: `Embed the query and rank your style profiles by cosine similarity.
Profiles without a usable embedding are skipped.

Examples:
  styleecho search "dry, clipped humor"
  styleecho search --limit 10 "lyrical nature writing"
  styleecho search --format json "legal memo"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("limit") {
				if err := validatePositiveInt(searchLimit, "limit"); err != nil {
					return err
				}
			}
			query, err := readText(cmd, args, "")
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), needs{db: true, providers: true})
			if err != nil {
				return err
			}
			defer a.Close()

			limit := searchLimit
			if !cmd.Flags().Changed("limit") {
				limit = a.cfg.SearchLimit
			}
			results, err := a.service.Search(cmd.Context(), a.owner, query, limit)
			if err != nil {
				return err
			}
			if jsonOutput() {
				return printJSON(cmd.OutOrStdout(), results)
			}
			if len(results) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No matching style profiles for: %s\n", query)
				return nil
			}

			w := newTable(cmd.OutOrStdout())
			fmt.Fprintf(w, "SCORE\tID\tNAME\tDESCRIPTION\n")
			fmt.Fprintf(w, "-----\t--\t----\t-----------\n")
			for _, r := range results {
				fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n",
					r.Similarity, r.Profile.ID, preview(r.Profile.Name, 24), preview(r.Profile.Description, 60))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nFound %d result(s)\n", len(results))
			return nil
		},
	}

	cmd.Flags().IntVar(&searchLimit, "limit", 5, "Maximum results to return (default $SEARCH_LIMIT)")
	return cmd
}
