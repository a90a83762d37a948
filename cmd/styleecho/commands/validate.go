package commands

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/easeaico/style-echo/internal/config"
	"github.com/easeaico/style-echo/internal/history"
	"github.com/easeaico/style-echo/internal/storage"
)

// NewValidateCmd checks configuration and backend connectivity.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and backend connectivity",
		Long: `Load the configuration, report which credentials are set (masked),
and test the database and Redis connections.

Examples:
  styleecho validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Validating configuration...")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			fmt.Fprintf(out, "  ✓ LLM: %s/%s\n", cfg.LLMProvider, cfg.LLMModel)
			fmt.Fprintf(out, "  ✓ Embeddings: %s/%s (%d dims)\n", cfg.EmbeddingProvider, cfg.EmbeddingModel, cfg.EmbeddingDimensions)

			failed := false
			for _, provider := range []string{cfg.LLMProvider, cfg.EmbeddingProvider} {
				if key := cfg.APIKey(provider); key != "" {
					fmt.Fprintf(out, "  ✓ %s key: %s\n", provider, maskValue(key))
				} else {
					fmt.Fprintf(out, "  ✗ %s key: NOT SET (required)\n", provider)
					failed = true
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if !checkDatabase(ctx, out, cfg) {
				failed = true
			}
			if !checkRedis(ctx, out, cfg) {
				failed = true
			}

			if failed {
				return fmt.Errorf("configuration validation failed")
			}
			fmt.Fprintln(out, "\nConfiguration validation completed!")
			return nil
		},
	}
}

func checkDatabase(ctx context.Context, out io.Writer, cfg *config.Config) bool {
	if err := cfg.RequireDatabase(); err != nil {
		fmt.Fprintf(out, "  ✗ DATABASE_URL: NOT SET (required)\n")
		return false
	}
	fmt.Fprintf(out, "  ✓ DATABASE_URL: %s\n", maskURL(cfg.DatabaseURL))

	store, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(out, "  ✗ Database connection: %v\n", err)
		return false
	}
	defer store.Close()
	fmt.Fprintln(out, "  ✓ Database connection successful")

	installed, err := store.VectorExtensionInstalled(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(out, "  ! %v\n", err)
	case installed:
		fmt.Fprintln(out, "  ✓ pgvector extension installed")
	default:
		fmt.Fprintln(out, "  ! pgvector extension not installed (run styleecho migrate)")
	}
	return true
}

func checkRedis(ctx context.Context, out io.Writer, cfg *config.Config) bool {
	if cfg.RedisURL == "" {
		fmt.Fprintln(out, "  - REDIS_URL: not set (history lives only for one process)")
		return true
	}
	client, err := history.NewRedisClient(cfg.RedisURL)
	if err != nil {
		fmt.Fprintf(out, "  ✗ REDIS_URL: %v\n", err)
		return false
	}
	defer func() { _ = client.Close() }()
	if err := client.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(out, "  ✗ Redis connection: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "  ✓ Redis connection successful (%s)\n", maskURL(cfg.RedisURL))
	return true
}

func maskValue(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}

// maskURL hides the password of a connection URL.
func maskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "****"
	}
	return u.Redacted()
}
