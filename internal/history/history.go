// Package history keeps a bounded, per-session window of conversation turns.
//
// Every operation is keyed by an explicit session identifier. There is no
// shared default window: calls without a key fail with a StateError.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/easeaico/style-echo/internal/types"
)

// DefaultLimit is the maximum number of turns retained per session.
const DefaultLimit = 10

// ErrNoSession is wrapped by StateError.
var ErrNoSession = errors.New("session key is required")

// StateError reports a history operation attempted without a valid session key.
type StateError struct {
	Op string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, ErrNoSession)
}

func (e *StateError) Unwrap() error {
	return ErrNoSession
}

// Store is a per-session history window.
//
// Append adds turns in order as one unit; once a window holds more than its
// limit, the oldest turns are dropped first.
type Store interface {
	Append(ctx context.Context, sessionID string, turns ...types.Turn) error
	Snapshot(ctx context.Context, sessionID string) ([]types.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

// EvictFunc observes turns dropped from a window because it exceeded its limit.
type EvictFunc func(sessionID string, dropped int)

func checkKey(op, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return &StateError{Op: op}
	}
	return nil
}

func validateTurns(turns []types.Turn) error {
	for i, turn := range turns {
		if !turn.Role.Valid() {
			return fmt.Errorf("turn %d has invalid role %q", i, turn.Role)
		}
	}
	return nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}
