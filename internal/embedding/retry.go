package embedding

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/easeaico/style-echo/internal/utils"
)

// ObserveFunc receives the outcome of every provider attempt.
type ObserveFunc func(elapsed time.Duration, err error)

// Retrying bounds each call with a timeout and retries a failed call once.
// Embedding is idempotent, so a repeat costs at most one extra request.
type Retrying struct {
	next       Embedder
	timeout    time.Duration
	retryDelay time.Duration
	retries    int
	observe    ObserveFunc
}

// NewRetrying wraps next. A zero timeout leaves the caller's deadline in charge.
func NewRetrying(next Embedder, timeout, retryDelay time.Duration) *Retrying {
	return &Retrying{
		next:       next,
		timeout:    timeout,
		retryDelay: retryDelay,
		retries:    1,
	}
}

// Observe registers a per-attempt observer.
func (r *Retrying) Observe(fn ObserveFunc) *Retrying {
	r.observe = fn
	return r
}

func (r *Retrying) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return r.do(ctx, "query", text, r.next.EmbedQuery)
}

func (r *Retrying) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return r.do(ctx, "document", text, r.next.EmbedDocument)
}

func (r *Retrying) do(ctx context.Context, kind, text string, call func(context.Context, string) ([]float32, error)) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		if attempt > 0 {
			if !utils.Sleep(ctx.Done(), utils.CalculateBackoff(r.retryDelay, attempt)) {
				return nil, ctx.Err()
			}
			slog.Debug("retrying embedding", "kind", kind, "attempt", attempt, "error", lastErr.Error())
		}

		vec, err := r.attempt(ctx, text, call)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return nil, lastErr
}

func (r *Retrying) attempt(ctx context.Context, text string, call func(context.Context, string) ([]float32, error)) ([]float32, error) {
	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	vec, err := call(callCtx, text)
	if r.observe != nil {
		r.observe(time.Since(start), err)
	}
	return vec, err
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var dimErr *DimensionError
	if errors.Is(err, ErrEmptyText) || errors.As(err, &dimErr) {
		return false
	}
	return true
}
