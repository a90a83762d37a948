package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/easeaico/style-echo/internal/types"
)

func userTurn(content string) types.Turn {
	return types.Turn{Role: types.RoleUser, Content: content}
}

func contents(turns []types.Turn) []string {
	out := make([]string, len(turns))
	for i, t := range turns {
		out[i] = t.Content
	}
	return out
}

func TestMemoryStoreKeepsMostRecentTurnsInOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(DefaultLimit, 0)

	var want []string
	for i := 0; i < 25; i++ {
		content := fmt.Sprintf("turn-%d", i)
		want = append(want, content)
		if err := store.Append(ctx, "s1", userTurn(content)); err != nil {
			t.Fatalf("append: %v", err)
		}

		got, err := store.Snapshot(ctx, "s1")
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if len(got) > DefaultLimit {
			t.Fatalf("window grew to %d turns", len(got))
		}
		start := max(0, len(want)-DefaultLimit)
		if fmt.Sprint(contents(got)) != fmt.Sprint(want[start:]) {
			t.Fatalf("after %d appends got %v, want %v", i+1, contents(got), want[start:])
		}
	}
}

func TestMemoryStoreAppendBatchIsTrimmedFromTheFront(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3, 0)

	var dropped int
	store.OnEvict(func(sessionID string, n int) { dropped += n })

	err := store.Append(ctx, "s1",
		userTurn("a"),
		types.Turn{Role: types.RoleAssistant, Content: "b"},
		userTurn("c"),
		types.Turn{Role: types.RoleAssistant, Content: "d"},
	)
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	got, _ := store.Snapshot(ctx, "s1")
	if fmt.Sprint(contents(got)) != "[b c d]" {
		t.Fatalf("unexpected window: %v", contents(got))
	}
	if dropped != 1 {
		t.Fatalf("expected 1 eviction, got %d", dropped)
	}
}

func TestMemoryStoreRejectsMissingSessionKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, 0)

	checks := map[string]error{
		"append":   store.Append(ctx, "", userTurn("x")),
		"clear":    store.Clear(ctx, "  "),
		"snapshot": func() error { _, err := store.Snapshot(ctx, ""); return err }(),
	}
	for op, err := range checks {
		var stateErr *StateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("%s: expected StateError, got %v", op, err)
		}
		if !errors.Is(err, ErrNoSession) {
			t.Fatalf("%s: expected ErrNoSession in chain", op)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("no window should be created without a key")
	}
}

func TestMemoryStoreRejectsUnknownRole(t *testing.T) {
	store := NewMemoryStore(0, 0)
	err := store.Append(context.Background(), "s1", types.Turn{Role: "system", Content: "x"})
	if err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(DefaultLimit, 0)

	const sessions = 8
	const perSession = 40

	var wg sync.WaitGroup
	for s := 0; s < sessions; s++ {
		for i := 0; i < perSession; i++ {
			wg.Add(1)
			go func(s, i int) {
				defer wg.Done()
				id := fmt.Sprintf("session-%d", s)
				if err := store.Append(ctx, id, userTurn(fmt.Sprintf("%s/%d", id, i))); err != nil {
					t.Errorf("append: %v", err)
				}
			}(s, i)
		}
	}
	wg.Wait()

	for s := 0; s < sessions; s++ {
		id := fmt.Sprintf("session-%d", s)
		got, err := store.Snapshot(ctx, id)
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if len(got) != DefaultLimit {
			t.Fatalf("%s: expected %d turns, got %d", id, DefaultLimit, len(got))
		}
		for _, turn := range got {
			if !strings.HasPrefix(turn.Content, id+"/") {
				t.Fatalf("%s observed foreign turn %q", id, turn.Content)
			}
		}
	}
}

func TestMemoryStoreSameSessionAppendsAreSerialized(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(100, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pair := []types.Turn{
				userTurn(fmt.Sprintf("q%d", i)),
				{Role: types.RoleAssistant, Content: fmt.Sprintf("a%d", i)},
			}
			if err := store.Append(ctx, "shared", pair...); err != nil {
				t.Errorf("append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := store.Snapshot(ctx, "shared")
	if len(got) != 100 {
		t.Fatalf("expected 100 turns, got %d", len(got))
	}
	for i := 0; i < len(got); i += 2 {
		if got[i].Role != types.RoleUser || got[i+1].Role != types.RoleAssistant {
			t.Fatalf("pair at %d interleaved: %v", i, contents(got[i:i+2]))
		}
		if got[i].Content[1:] != got[i+1].Content[1:] {
			t.Fatalf("pair at %d mismatched: %v", i, contents(got[i:i+2]))
		}
	}
}

func TestMemoryStoreSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, 0)
	_ = store.Append(ctx, "s1", userTurn("original"))

	got, _ := store.Snapshot(ctx, "s1")
	got[0].Content = "mutated"

	again, _ := store.Snapshot(ctx, "s1")
	if again[0].Content != "original" {
		t.Fatalf("snapshot aliased internal state")
	}
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0, 0)
	_ = store.Append(ctx, "s1", userTurn("a"))
	_ = store.Append(ctx, "s2", userTurn("b"))

	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, _ := store.Snapshot(ctx, "s1"); len(got) != 0 {
		t.Fatalf("expected empty window after clear, got %v", contents(got))
	}
	if got, _ := store.Snapshot(ctx, "s2"); len(got) != 1 {
		t.Fatalf("clear leaked into another session")
	}
	if err := store.Append(ctx, "s1", userTurn("c")); err != nil {
		t.Fatalf("append after clear: %v", err)
	}
	if got, _ := store.Snapshot(ctx, "s1"); fmt.Sprint(contents(got)) != "[c]" {
		t.Fatalf("unexpected window after reuse: %v", contents(got))
	}
}

func TestMemoryStoreExpiresIdleWindows(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(0, time.Minute)
	store.now = func() time.Time { return now }

	_ = store.Append(ctx, "idle", userTurn("a"))
	_ = store.Append(ctx, "busy", userTurn("b"))

	now = now.Add(45 * time.Second)
	_ = store.Append(ctx, "busy", userTurn("c"))

	now = now.Add(30 * time.Second)
	if got, _ := store.Snapshot(ctx, "idle"); len(got) != 0 {
		t.Fatalf("expected idle window to expire, got %v", contents(got))
	}
	if got, _ := store.Snapshot(ctx, "busy"); len(got) != 2 {
		t.Fatalf("expected busy window to survive, got %v", contents(got))
	}

	now = now.Add(2 * time.Minute)
	if removed := store.Sweep(); removed != 1 {
		t.Fatalf("expected sweep to remove 1 window, removed %d", removed)
	}
	if store.Len() != 0 {
		t.Fatalf("expected no live windows, got %d", store.Len())
	}
}

func TestMemoryStoreRunStopsWithContext(t *testing.T) {
	store := NewMemoryStore(0, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("janitor did not stop")
	}
}
