package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/easeaico/style-echo/internal/style"
)

type chatFlags struct {
	styleID  string
	strength float64
	subject  string
}

// NewChatCmd creates the interactive chat command.
func NewChatCmd() *cobra.Command {
	var flags chatFlags
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive rewriting session",
		Long: `Start an interactive session. Each line you enter is rewritten in the
selected style, with the conversation so far as context. The whole
process is one session.

Commands inside the session:
  /clear   forget the conversation so far
  /exit    leave

Examples:
  styleecho chat --style <id>
  styleecho chat --style <id> --strength 0.8 --subject <id>`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), needs{db: true, providers: true})
			if err != nil {
				return err
			}
			defer a.Close()

			base := style.ImitateRequest{
				SessionID: uuid.NewString(),
				OwnerID:   a.owner,
				StyleID:   flags.styleID,
				SubjectID: flags.subject,
			}
			if cmd.Flags().Changed("strength") {
				strength := flags.strength
				base.Strength = &strength
			}
			session := &chatSession{
				base:    base,
				imitate: a.service.Imitate,
				clear:   a.service.ClearHistory,
				debug:   a.cfg.Debug,
			}
			return session.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&flags.styleID, "style", "", "Style profile id (omit for assistant mode)")
	cmd.Flags().Float64Var(&flags.strength, "strength", 0.5, "Rewrite strength between 0 and 1 (default: the profile's strength)")
	cmd.Flags().StringVar(&flags.subject, "subject", "", "Record every result as a revision of this subject")
	return cmd
}

// chatSession drives one interactive session over a reader and writer.
type chatSession struct {
	base    style.ImitateRequest
	imitate func(context.Context, style.ImitateRequest) (*style.ImitateResult, error)
	clear   func(context.Context, string) error
	debug   bool
}

func (s *chatSession) run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "session %s (/clear to reset, /exit to quit)\n", s.base.SessionID)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/clear":
			if err := s.clear(ctx, s.base.SessionID); err != nil {
				fmt.Fprintf(out, "error: %s\n", style.Describe(err, s.debug))
				continue
			}
			fmt.Fprintln(out, "history cleared")
			continue
		}

		req := s.base
		req.Text = line
		streamed := false
		req.OnChunk = func(chunk string) {
			streamed = true
			_, _ = io.WriteString(out, chunk)
		}
		res, err := s.imitate(ctx, req)
		if streamed {
			fmt.Fprintln(out)
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "error: %s\n", style.Describe(err, s.debug))
			continue
		}
		if !streamed {
			fmt.Fprintln(out, res.Result)
		}
		if res.RevisionID != "" {
			fmt.Fprintf(out, "(revision %s)\n", res.RevisionID)
		}
	}
}
