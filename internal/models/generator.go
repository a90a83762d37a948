package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/adk/model"
	"google.golang.org/genai"

	"github.com/easeaico/style-echo/internal/types"
	"github.com/easeaico/style-echo/internal/utils"
)

// Generator produces text for a chat request.
type Generator interface {
	Generate(ctx context.Context, req *types.GenerationRequest) (string, error)
}

// StreamFunc receives partial text as it arrives.
type StreamFunc func(chunk string)

// LLMGenerator runs requests through an ADK model.LLM. Each request gets
// exactly one attempt bounded by timeout.
type LLMGenerator struct {
	llm     model.LLM
	timeout time.Duration
	observe func(elapsed time.Duration, err error)
}

func NewLLMGenerator(llm model.LLM, timeout time.Duration) *LLMGenerator {
	return &LLMGenerator{llm: llm, timeout: timeout}
}

// Observe registers a per-call observer.
func (g *LLMGenerator) Observe(fn func(elapsed time.Duration, err error)) *LLMGenerator {
	g.observe = fn
	return g
}

func (g *LLMGenerator) Generate(ctx context.Context, req *types.GenerationRequest) (string, error) {
	return g.run(ctx, req, false, nil)
}

// Stream behaves like Generate and also reports partial text to onChunk.
func (g *LLMGenerator) Stream(ctx context.Context, req *types.GenerationRequest, onChunk StreamFunc) (string, error) {
	return g.run(ctx, req, true, onChunk)
}

func (g *LLMGenerator) run(ctx context.Context, req *types.GenerationRequest, stream bool, onChunk StreamFunc) (text string, err error) {
	if g == nil || g.llm == nil {
		return "", fmt.Errorf("generator not configured")
	}
	if req == nil || len(req.Messages) == 0 {
		return "", fmt.Errorf("generation request has no messages")
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		if g.observe != nil {
			g.observe(time.Since(start), err)
		}
	}()

	var partial, final strings.Builder
	gotFinal := false
	for resp, respErr := range g.llm.GenerateContent(ctx, toLLMRequest(req), stream) {
		if respErr != nil {
			return "", respErr
		}
		if resp == nil {
			continue
		}
		chunk := utils.ExtractContentText(resp.Content)
		if resp.Partial {
			partial.WriteString(chunk)
			if onChunk != nil && chunk != "" {
				onChunk(chunk)
			}
			continue
		}
		final.WriteString(chunk)
		gotFinal = true
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	raw := final.String()
	if !gotFinal || (raw == "" && partial.Len() > 0) {
		raw = partial.String()
	}
	text, err = utils.CleanGeneratedText(raw)
	if errors.Is(err, utils.ErrEmptyOutput) {
		return "", fmt.Errorf("model %s returned no text: %w", g.llm.Name(), err)
	}
	return text, err
}

func toLLMRequest(req *types.GenerationRequest) *model.LLMRequest {
	temperature := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, turn := range req.Messages {
		role := genai.Role(genai.RoleUser)
		if turn.Role == types.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	return &model.LLMRequest{
		Contents: contents,
		Config:   cfg,
	}
}
