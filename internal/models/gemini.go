package models

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// NewGeminiModel returns the ADK Gemini model for the Gemini API backend.
func NewGeminiModel(ctx context.Context, modelName string, cfg *genai.ClientConfig) (model.LLM, error) {
	if cfg == nil || strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}
	if cfg.Backend == genai.BackendUnspecified {
		cfg.Backend = genai.BackendGeminiAPI
	}

	llm, err := gemini.NewModel(ctx, modelName, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini model: %w", err)
	}
	return llm, nil
}

// NewModel picks the adapter for a provider name.
func NewModel(ctx context.Context, provider, modelName, apiKey string) (model.LLM, error) {
	cfg := &genai.ClientConfig{APIKey: apiKey}
	switch provider {
	case "openai":
		return NewOpenAIModel(ctx, modelName, cfg)
	case "grok":
		return NewGrokModel(ctx, modelName, cfg)
	case "openrouter":
		return NewOpenRouterModel(ctx, modelName, cfg)
	case "gemini":
		return NewGeminiModel(ctx, modelName, cfg)
	}
	return nil, fmt.Errorf("unknown llm provider %q", provider)
}
