// Package embedding turns text into vectors through an external provider.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrEmptyText is returned for blank input. It is never retried.
var ErrEmptyText = errors.New("text to embed cannot be empty")

// Embedder converts text to a vector. Query and document variants let
// providers that support task types optimize each side of a search.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// DimensionError reports a provider vector shorter than the configured size.
type DimensionError struct {
	Got, Want int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimensions mismatch: got %d want %d", e.Got, e.Want)
}

func fitDimensions(values []float32, dimensions int, model string) ([]float32, error) {
	if dimensions <= 0 || len(values) == dimensions {
		return values, nil
	}
	if len(values) > dimensions {
		slog.Warn("embedding dimensions exceed target, truncating", "actual", len(values), "target", dimensions, "model", model)
		return values[:dimensions], nil
	}
	return nil, &DimensionError{Got: len(values), Want: dimensions}
}
