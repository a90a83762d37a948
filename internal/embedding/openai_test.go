package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/openai/openai-go/v3/option"
)

func newOpenAIServer(t *testing.T, status int, body string, seen *map[string]any, calls *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpenAIEmbedderEmbeds(t *testing.T) {
	var seen map[string]any
	var calls int32
	server := newOpenAIServer(t, http.StatusOK,
		`{"object":"list","model":"text-embedding-3-small","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"usage":{"prompt_tokens":2,"total_tokens":2}}`,
		&seen, &calls)

	e, err := NewOpenAIEmbedder("sk-test", "", 3, option.WithBaseURL(server.URL+"/"))
	if err != nil {
		t.Fatalf("new embedder: %v", err)
	}
	vec, err := e.EmbedQuery(context.Background(), "quiet evening")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || vec[0] != float32(0.1) || vec[2] != float32(0.3) {
		t.Fatalf("unexpected vector %v", vec)
	}
	if seen["model"] != "text-embedding-3-small" || seen["input"] != "quiet evening" || seen["dimensions"] != float64(3) {
		t.Fatalf("unexpected request %v", seen)
	}
}

func TestOpenAIEmbedderDoesNotRetryInternally(t *testing.T) {
	var calls int32
	server := newOpenAIServer(t, http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, nil, &calls)

	e, _ := NewOpenAIEmbedder("sk-test", "m", 0, option.WithBaseURL(server.URL+"/"))
	if _, err := e.EmbedDocument(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected a single request, got %d", calls)
	}
}

func TestOpenAIEmbedderRejectsEmptyText(t *testing.T) {
	e, _ := NewOpenAIEmbedder("sk-test", "m", 0)
	if _, err := e.EmbedQuery(context.Background(), "  "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := NewOpenAIEmbedder("", "m", 0); err == nil {
		t.Fatalf("expected missing key error")
	}
}
