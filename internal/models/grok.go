package models

import (
	"context"

	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const grokBaseURL = "https://api.x.ai/v1"

// NewGrokModel targets the x.ai OpenAI-compatible endpoint
// (e.g. "grok-4-fast", "grok-2-1212").
func NewGrokModel(ctx context.Context, modelName string, cfg *genai.ClientConfig, opts ...option.RequestOption) (model.LLM, error) {
	return newOpenAICompatible("grok", grokBaseURL, modelName, cfg, opts...)
}
