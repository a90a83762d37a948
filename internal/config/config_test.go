package config

import (
	"strings"
	"testing"
	"time"
)

var envKeys = []string{
	"DATABASE_URL", "REDIS_URL", "OPENAI_API_KEY", "GOOGLE_API_KEY", "XAI_API_KEY", "OPENROUTER_API_KEY",
	"LLM_PROVIDER", "LLM_MODEL", "MAX_OUTPUT_TOKENS", "EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
	"EMBEDDING_DIMENSIONS", "EMBEDDING_TIMEOUT", "GENERATION_TIMEOUT", "EMBEDDING_RETRY_DELAY",
	"SEARCH_LIMIT", "RELATED_LIMIT", "HISTORY_LIMIT", "HISTORY_TTL", "DEFAULT_TEMPERATURE",
	"DESCRIPTION_PREVIEW", "STYLE_DEBUG", "METRICS_ADDR", "STYLE_OWNER",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLMProvider != ProviderOpenAI || cfg.LLMModel != "gpt-4o-mini" {
		t.Errorf("LLM = %s/%s, want openai/gpt-4o-mini", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" || cfg.EmbeddingDimensions != 1536 {
		t.Errorf("embedding = %s/%d, want text-embedding-3-small/1536", cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	}
	if cfg.EmbeddingTimeout != 5*time.Second || cfg.GenerationTimeout != 45*time.Second {
		t.Errorf("timeouts = %v/%v, want 5s/45s", cfg.EmbeddingTimeout, cfg.GenerationTimeout)
	}
	if cfg.SearchLimit != 5 || cfg.RelatedLimit != 3 || cfg.HistoryLimit != 10 {
		t.Errorf("limits = %d/%d/%d, want 5/3/10", cfg.SearchLimit, cfg.RelatedLimit, cfg.HistoryLimit)
	}
	if cfg.DefaultTemperature != 0.7 || cfg.MaxOutputTokens != 1000 {
		t.Errorf("generation = %f/%d, want 0.7/1000", cfg.DefaultTemperature, cfg.MaxOutputTokens)
	}
	if cfg.HistoryTTL != 30*time.Minute {
		t.Errorf("HistoryTTL = %v, want 30m", cfg.HistoryTTL)
	}
	if cfg.Debug {
		t.Error("Debug = true, want false")
	}
	if cfg.Owner != "local" {
		t.Errorf("Owner = %q, want local", cfg.Owner)
	}
}

func TestLoadCustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "Grok")
	t.Setenv("LLM_MODEL", "grok-4-fast")
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("EMBEDDING_DIMENSIONS", "768")
	t.Setenv("HISTORY_TTL", "2h")
	t.Setenv("STYLE_DEBUG", "true")
	t.Setenv("SEARCH_LIMIT", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LLMProvider != ProviderGrok || cfg.LLMModel != "grok-4-fast" {
		t.Errorf("LLM = %s/%s", cfg.LLMProvider, cfg.LLMModel)
	}
	if cfg.EmbeddingProvider != ProviderGemini || cfg.EmbeddingDimensions != 768 {
		t.Errorf("embedding = %s/%d", cfg.EmbeddingProvider, cfg.EmbeddingDimensions)
	}
	if cfg.HistoryTTL != 2*time.Hour || !cfg.Debug {
		t.Errorf("HistoryTTL/Debug = %v/%v", cfg.HistoryTTL, cfg.Debug)
	}
	if cfg.SearchLimit != 5 {
		t.Errorf("SearchLimit = %d, want fallback 5", cfg.SearchLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "unknown llm provider", env: map[string]string{"LLM_PROVIDER": "llama"}, wantErr: "LLM_PROVIDER"},
		{name: "grok cannot embed", env: map[string]string{"EMBEDDING_PROVIDER": "grok"}, wantErr: "EMBEDDING_PROVIDER"},
		{name: "history limit zero", env: map[string]string{"HISTORY_LIMIT": "0"}, wantErr: "HISTORY_LIMIT"},
		{name: "history limit too large", env: map[string]string{"HISTORY_LIMIT": "101"}, wantErr: "HISTORY_LIMIT"},
		{name: "temperature too high", env: map[string]string{"DEFAULT_TEMPERATURE": "2.5"}, wantErr: "DEFAULT_TEMPERATURE"},
		{name: "negative related limit", env: map[string]string{"RELATED_LIMIT": "-1"}, wantErr: "RELATED_LIMIT"},
		{name: "related limit above three", env: map[string]string{"RELATED_LIMIT": "4"}, wantErr: "RELATED_LIMIT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error mentioning %s, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRequireProviderKeys(t *testing.T) {
	cfg := &Config{LLMProvider: ProviderGrok, EmbeddingProvider: ProviderOpenAI, OpenAIAPIKey: "sk"}
	err := cfg.RequireProviderKeys()
	if err == nil || !strings.Contains(err.Error(), "XAI_API_KEY") {
		t.Fatalf("expected missing XAI_API_KEY, got %v", err)
	}

	cfg.XAIAPIKey = "xai"
	if err := cfg.RequireProviderKeys(); err != nil {
		t.Fatalf("expected keys to be satisfied, got %v", err)
	}
	if cfg.APIKey(ProviderGrok) != "xai" {
		t.Fatalf("unexpected grok key")
	}

	if err := (&Config{}).RequireDatabase(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}
}
