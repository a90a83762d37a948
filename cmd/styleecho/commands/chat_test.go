package commands

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/easeaico/style-echo/internal/style"
)

type recordedChat struct {
	requests []style.ImitateRequest
	cleared  int
	fail     map[string]error
}

func (r *recordedChat) imitate(_ context.Context, req style.ImitateRequest) (*style.ImitateResult, error) {
	r.requests = append(r.requests, req)
	if err := r.fail[req.Text]; err != nil {
		return nil, err
	}
	if req.Text == "stream" {
		req.OnChunk("str")
		req.OnChunk("eamed")
		return &style.ImitateResult{Result: "streamed"}, nil
	}
	return &style.ImitateResult{Result: "echo " + req.Text, RevisionID: "rev-1"}, nil
}

func (r *recordedChat) clear(context.Context, string) error {
	r.cleared++
	return nil
}

func TestChatSessionLoop(t *testing.T) {
	rec := &recordedChat{fail: map[string]error{
		"bad": &style.UpstreamError{Stage: style.StageGenerate, Err: errors.New("503 upstream")},
	}}
	session := &chatSession{
		base:    style.ImitateRequest{SessionID: "s1", OwnerID: "owner", StyleID: "p1"},
		imitate: rec.imitate,
		clear:   rec.clear,
	}

	in := strings.NewReader("hello\n\nbad\n/clear\nstream\n/exit\nnever\n")
	var out strings.Builder
	if err := session.run(context.Background(), in, &out); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(rec.requests) != 3 {
		t.Fatalf("expected 3 imitate calls, got %d", len(rec.requests))
	}
	for _, req := range rec.requests {
		if req.SessionID != "s1" || req.StyleID != "p1" || req.OwnerID != "owner" {
			t.Fatalf("request lost session settings: %+v", req)
		}
	}
	if rec.cleared != 1 {
		t.Fatalf("expected one clear, got %d", rec.cleared)
	}

	text := out.String()
	for _, want := range []string{"echo hello", "(revision rev-1)", "could not generate text", "history cleared", "streamed\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "503") {
		t.Errorf("provider detail leaked without debug:\n%s", text)
	}
	if strings.Contains(text, "never") {
		t.Errorf("input after /exit was processed:\n%s", text)
	}
}

func TestChatSessionEndsAtEOF(t *testing.T) {
	rec := &recordedChat{}
	session := &chatSession{
		base:    style.ImitateRequest{SessionID: "s1", OwnerID: "owner"},
		imitate: rec.imitate,
		clear:   rec.clear,
	}
	var out strings.Builder
	if err := session.run(context.Background(), strings.NewReader("only line"), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(rec.requests) != 1 || rec.requests[0].Text != "only line" {
		t.Fatalf("unexpected requests %+v", rec.requests)
	}
}
