// Package metrics exposes Prometheus collectors for provider calls,
// ranking exclusions and history evictions.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "styleecho"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry          *prometheus.Registry
	providerCalls     *prometheus.CounterVec
	providerLatency   *prometheus.HistogramVec
	rankingExclusions *prometheus.CounterVec
	historyEvictions  prometheus.Counter
}

// New registers collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Embedding and generation calls by stage and outcome.",
		}, []string{"stage", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_duration_seconds",
			Help:      "Latency of embedding and generation calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		rankingExclusions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ranking_exclusions_total",
			Help:      "Candidates dropped from ranking by reason.",
		}, []string{"reason"}),
		historyEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_evictions_total",
			Help:      "Turns dropped from session windows to respect the cap.",
		}),
	}
	m.registry.MustRegister(
		m.providerCalls,
		m.providerLatency,
		m.rankingExclusions,
		m.historyEvictions,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveCall records one provider call.
func (m *Metrics) ObserveCall(stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	m.providerCalls.WithLabelValues(stage, outcome).Inc()
	m.providerLatency.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// Excluded counts a candidate dropped from ranking.
func (m *Metrics) Excluded(reason string) {
	if m == nil {
		return
	}
	m.rankingExclusions.WithLabelValues(reason).Inc()
}

// Evicted counts turns dropped from a history window.
func (m *Metrics) Evicted(_ string, dropped int) {
	if m == nil || dropped <= 0 {
		return
	}
	m.historyEvictions.Add(float64(dropped))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("failed to shut down metrics server", "error", err.Error())
		}
	}()

	slog.Info("metrics endpoint listening", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve metrics: %w", err)
	}
	return nil
}
