// Package commands implements the styleecho subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/easeaico/style-echo/internal/style"
)

var version = "dev"

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	owner       string
	debug       bool
	metricsAddr string
	format      string
}

var globals globalOptions

func SetVersion(v string) {
	version = v
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "styleecho",
		Short: "Rewrite text in the style of saved writing samples",
		Long: `styleecho keeps named writing-style profiles and rewrites text so it
echoes one of them. Profiles are ranked against the input by embedding
similarity, and each session keeps a bounded conversation history.

Examples:
  styleecho profile add --name noir --sample-file noir.txt
  styleecho search "clipped, moody narration"
  styleecho imitate --style <id> --strength 0.6 "The meeting ran late."
  styleecho chat --style <id>`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if globals.format != "text" && globals.format != "json" {
				return fmt.Errorf("--format must be text or json, got %q", globals.format)
			}
			setupLogging(globals.debug)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&globals.owner, "owner", "", "Owner id that scopes profiles and revisions (default $STYLE_OWNER or local)")
	flags.BoolVar(&globals.debug, "debug", false, "Verbose logging and detailed error messages")
	flags.StringVar(&globals.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.StringVar(&globals.format, "format", "text", "Output format: text or json")

	root.AddCommand(
		NewMigrateCmd(),
		NewProfileCmd(),
		NewSearchCmd(),
		NewImitateCmd(),
		NewChatCmd(),
		NewHistoryCmd(),
		NewRevisionsCmd(),
		NewSubjectCmd(),
		NewValidateCmd(),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", style.Describe(err, debugEnabled()))
		return 1
	}
	return 0
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func debugEnabled() bool {
	if globals.debug {
		return true
	}
	v := os.Getenv("STYLE_DEBUG")
	return v == "1" || v == "true"
}
