package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easeaico/style-echo/internal/config"
	"github.com/easeaico/style-echo/internal/embedding"
	"github.com/easeaico/style-echo/internal/history"
	"github.com/easeaico/style-echo/internal/metrics"
	"github.com/easeaico/style-echo/internal/models"
	"github.com/easeaico/style-echo/internal/prompt"
	"github.com/easeaico/style-echo/internal/revision"
	"github.com/easeaico/style-echo/internal/storage"
	"github.com/easeaico/style-echo/internal/style"
)

// needs selects which backends a command opens.
type needs struct {
	db        bool
	providers bool
}

// app is the wired set of collaborators for one command run.
type app struct {
	cfg     *config.Config
	owner   string
	store   *storage.Store
	ledger  *revision.Ledger
	service *style.Service
	metrics *metrics.Metrics
	closers []func()
}

func openApp(ctx context.Context, n needs) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if globals.debug {
		cfg.Debug = true
	}
	if globals.metricsAddr != "" {
		cfg.MetricsAddr = globals.metricsAddr
	}
	if cfg.Debug {
		setupLogging(true)
	}

	a := &app{cfg: cfg, owner: cfg.Owner, metrics: metrics.New()}
	if globals.owner != "" {
		a.owner = globals.owner
	}
	slog.Debug("configuration loaded",
		"llm_provider", cfg.LLMProvider,
		"llm_model", cfg.LLMModel,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
		"owner", a.owner,
	)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				slog.Error("metrics server stopped", "error", err.Error())
			}
		}()
	}

	deps := style.Deps{Metrics: a.metrics}

	if n.db {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
		store, err := storage.NewStore(ctx, cfg.DatabaseURL, storage.WithDecodeHook(func(string, error) {
			a.metrics.Excluded("decode_error")
		}))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.store = store
		a.closers = append(a.closers, store.Close)
		a.ledger = revision.NewLedger(store.Revisions)
		deps.Profiles = store.Profiles
		deps.Ledger = a.ledger
	}

	if n.providers {
		if err := cfg.RequireProviderKeys(); err != nil {
			a.Close()
			return nil, err
		}
		embedder, err := newEmbedder(ctx, cfg, a.metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
		generator, err := newGenerator(ctx, cfg, a.metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
		deps.Embedder = embedder
		deps.Generator = generator
	}

	hs, err := a.newHistory(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	deps.History = hs
	deps.Assembler = prompt.NewAssembler(prompt.Options{
		HistoryLimit:       cfg.HistoryLimit,
		RelatedLimit:       cfg.RelatedLimit,
		DescriptionPreview: cfg.DescriptionPreview,
		DefaultTemperature: &cfg.DefaultTemperature,
		MaxOutputTokens:    cfg.MaxOutputTokens,
	})

	a.service = style.NewService(deps, style.Options{
		SearchLimit:  cfg.SearchLimit,
		RelatedLimit: cfg.RelatedLimit,
	})
	return a, nil
}

// Close releases backends in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// newHistory uses Redis when REDIS_URL is set so sessions survive across
// invocations; otherwise windows live only for this process.
func (a *app) newHistory(ctx context.Context) (history.Store, error) {
	cfg := a.cfg
	if cfg.RedisURL != "" {
		client, err := history.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		store := history.NewRedisStore(client, cfg.HistoryLimit, cfg.HistoryTTL)
		store.OnEvict(a.metrics.Evicted)
		return store, nil
	}

	store := history.NewMemoryStore(cfg.HistoryLimit, cfg.HistoryTTL)
	store.OnEvict(a.metrics.Evicted)
	janitorCtx, cancel := context.WithCancel(ctx)
	go store.Run(janitorCtx, time.Minute)
	a.closers = append(a.closers, cancel)
	return store, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (embedding.Embedder, error) {
	var (
		base embedding.Embedder
		err  error
	)
	switch cfg.EmbeddingProvider {
	case config.ProviderGemini:
		base, err = embedding.NewGenAIEmbedder(ctx, cfg.GoogleAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	default:
		base, err = embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedding.NewRetrying(base, cfg.EmbeddingTimeout, cfg.EmbeddingRetryDelay).
		Observe(func(elapsed time.Duration, err error) {
			m.ObserveCall(string(style.StageAnalyze), elapsed, err)
		}), nil
}

func newGenerator(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*models.LLMGenerator, error) {
	llm, err := models.NewModel(ctx, cfg.LLMProvider, cfg.LLMModel, cfg.APIKey(cfg.LLMProvider))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.LLMProvider, err)
	}
	return models.NewLLMGenerator(llm, cfg.GenerationTimeout).
		Observe(func(elapsed time.Duration, err error) {
			m.ObserveCall(string(style.StageGenerate), elapsed, err)
		}), nil
}
