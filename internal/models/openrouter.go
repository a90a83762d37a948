package models

import (
	"context"
	"strings"

	"github.com/openai/openai-go/v3/option"
	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// NewOpenRouterModel accepts either "vendor/model" or a bare model name,
// which is sent as-is.
func NewOpenRouterModel(ctx context.Context, modelName string, cfg *genai.ClientConfig, opts ...option.RequestOption) (model.LLM, error) {
	return newOpenAICompatible("openrouter", openRouterBaseURL, strings.TrimPrefix(modelName, "openrouter/"), cfg, opts...)
}
