package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/easeaico/style-echo/internal/style"
	"github.com/easeaico/style-echo/internal/types"
)

type imitateFlags struct {
	styleID      string
	strength     float64
	session      string
	clearHistory bool
	subject      string
	content      string
	contentFile  string
	stream       bool
}

// NewImitateCmd creates the imitate command.
func NewImitateCmd() *cobra.Command {
	var flags imitateFlags
	cmd := &cobra.Command{
		Use:   "imitate <text>",
		Short: "Rewrite text in a profile's style",
		Long: `Rewrite the text so it echoes the selected style profile. Without
--style the model acts as a general writing assistant. Pass "-" to read
the text from stdin.

History is kept per session. With REDIS_URL set, reuse --session across
runs to continue a conversation.

Examples:
  styleecho imitate --style <id> --strength 0.6 "The meeting ran late."
  styleecho imitate --style <id> --session draft-1 --subject <id> - < para.txt
  styleecho imitate --content-file chapter.md "Suggest a stronger opening line"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args, "")
			if err != nil {
				return err
			}
			req := style.ImitateRequest{
				SessionID:      flags.session,
				Text:           text,
				StyleID:        flags.styleID,
				ClearHistory:   flags.clearHistory,
				SubjectID:      flags.subject,
				CurrentContent: flags.content,
			}
			if flags.contentFile != "" {
				if req.CurrentContent, err = readText(cmd, nil, flags.contentFile); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("strength") {
				strength := flags.strength
				req.Strength = &strength
			}
			if req.SessionID == "" {
				req.SessionID = uuid.NewString()
				slog.Debug("started new session", "session_id", req.SessionID)
			}

			a, err := openApp(cmd.Context(), needs{db: true, providers: true})
			if err != nil {
				return err
			}
			defer a.Close()
			req.OwnerID = a.owner

			out := cmd.OutOrStdout()
			streaming := flags.stream && !jsonOutput()
			if streaming {
				req.OnChunk = func(chunk string) { _, _ = io.WriteString(out, chunk) }
			}

			res, err := a.service.Imitate(cmd.Context(), req)
			if err != nil {
				if streaming {
					fmt.Fprintln(out)
				}
				return err
			}
			if jsonOutput() {
				return printJSON(out, struct {
					SessionID string `json:"session_id"`
					*style.ImitateResult
				}{req.SessionID, res})
			}
			if streaming {
				// Streamed chunks are raw; print the cleaned result separately.
				fmt.Fprint(out, "\n\n")
			}
			fmt.Fprintln(out, res.Result)
			printImitateFooter(cmd.ErrOrStderr(), req.SessionID, res)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.styleID, "style", "", "Style profile id (omit for assistant mode)")
	cmd.Flags().Float64Var(&flags.strength, "strength", 0.5, "Rewrite strength between 0 and 1 (default: the profile's strength)")
	cmd.Flags().StringVar(&flags.session, "session", "", "Session id for conversation history (default: a new session)")
	cmd.Flags().BoolVar(&flags.clearHistory, "clear-history", false, "Clear the session history before rewriting")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Record the result as a revision of this subject")
	cmd.Flags().StringVar(&flags.content, "content", "", "Current document content for context")
	cmd.Flags().StringVar(&flags.contentFile, "content-file", "", "Read the current document content from a file")
	cmd.Flags().BoolVar(&flags.stream, "stream", false, "Print partial output as it arrives")
	return cmd
}

func printImitateFooter(w io.Writer, sessionID string, res *style.ImitateResult) {
	fmt.Fprintf(w, "\nsession: %s\n", sessionID)
	if res.RevisionID != "" {
		fmt.Fprintf(w, "revision: %s\n", res.RevisionID)
	}
	printRelated(w, res.RelatedStyles)
}

func printRelated(w io.Writer, related []types.RankedResult) {
	if len(related) == 0 {
		return
	}
	fmt.Fprintln(w, "related styles:")
	for _, r := range related {
		fmt.Fprintf(w, "  %.3f  %s  %s\n", r.Similarity, r.Profile.ID, r.Profile.Name)
	}
}
