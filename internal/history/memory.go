package history

import (
	"context"
	"sync"
	"time"

	"github.com/easeaico/style-echo/internal/types"
)

// MemoryStore keeps windows in process memory. Windows expire after ttl of
// inactivity; a zero ttl keeps them until Clear.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	ttl     time.Duration
	now     func() time.Time
	onEvict EvictFunc
}

type window struct {
	mu        sync.Mutex
	turns     []types.Turn
	expiresAt time.Time
	dead      bool
}

// NewMemoryStore returns an in-memory Store.
func NewMemoryStore(limit int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		limit:   normalizeLimit(limit),
		ttl:     ttl,
		now:     time.Now,
	}
}

// OnEvict registers a hook for FIFO evictions.
func (s *MemoryStore) OnEvict(fn EvictFunc) {
	s.onEvict = fn
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...types.Turn) error {
	if err := checkKey("append", sessionID); err != nil {
		return err
	}
	if err := validateTurns(turns); err != nil {
		return err
	}
	if len(turns) == 0 {
		return nil
	}

	for {
		w := s.window(sessionID, true)
		w.mu.Lock()
		if w.dead {
			// Swept between lookup and lock; fetch the replacement.
			w.mu.Unlock()
			continue
		}
		now := s.now()
		for _, turn := range turns {
			if turn.CreatedAt.IsZero() {
				turn.CreatedAt = now
			}
			w.turns = append(w.turns, turn)
		}
		dropped := 0
		if over := len(w.turns) - s.limit; over > 0 {
			dropped = over
			kept := make([]types.Turn, s.limit)
			copy(kept, w.turns[over:])
			w.turns = kept
		}
		w.touch(now, s.ttl)
		w.mu.Unlock()

		if dropped > 0 && s.onEvict != nil {
			s.onEvict(sessionID, dropped)
		}
		return nil
	}
}

func (s *MemoryStore) Snapshot(_ context.Context, sessionID string) ([]types.Turn, error) {
	if err := checkKey("snapshot", sessionID); err != nil {
		return nil, err
	}
	w := s.window(sessionID, false)
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dead {
		return nil, nil
	}
	out := make([]types.Turn, len(w.turns))
	copy(out, w.turns)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if err := checkKey("clear", sessionID); err != nil {
		return err
	}
	s.mu.Lock()
	w, ok := s.windows[sessionID]
	delete(s.windows, sessionID)
	s.mu.Unlock()
	if ok {
		w.mu.Lock()
		w.dead = true
		w.turns = nil
		w.mu.Unlock()
	}
	return nil
}

// Sweep removes expired windows and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, w := range s.windows {
		w.mu.Lock()
		if w.expired(now) {
			w.dead = true
			w.turns = nil
			delete(s.windows, id)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// Run sweeps expired windows every interval until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Len returns the number of live windows.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) window(sessionID string, create bool) *window {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[sessionID]
	if ok {
		w.mu.Lock()
		expired := w.expired(now)
		if expired {
			w.dead = true
			w.turns = nil
		}
		w.mu.Unlock()
		if !expired {
			return w
		}
		delete(s.windows, sessionID)
	}
	if !create {
		return nil
	}
	w = &window{}
	w.touch(now, s.ttl)
	s.windows[sessionID] = w
	return w
}

func (w *window) touch(now time.Time, ttl time.Duration) {
	if ttl > 0 {
		w.expiresAt = now.Add(ttl)
	}
}

func (w *window) expired(now time.Time) bool {
	return !w.expiresAt.IsZero() && now.After(w.expiresAt)
}
