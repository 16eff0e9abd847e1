package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.ExplanationBatchSize != 10 {
		t.Errorf("expected default batch size 10, got %d", cfg.ExplanationBatchSize)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Errorf("expected default llm provider bedrock, got %s", cfg.LLMProvider)
	}
	if cfg.LLMTimeout != 90*time.Second {
		t.Errorf("expected default llm timeout 90s, got %s", cfg.LLMTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("WORKER_COUNT", "5")
	t.Setenv("USE_MEMORY_QUEUE", "true")
	t.Setenv("EXPLANATION_BATCH_SIZE", "3")
	t.Setenv("EXTRACTOR_TIMEOUT", "15s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.WorkerCount != 5 {
		t.Errorf("expected worker count 5, got %d", cfg.WorkerCount)
	}
	if !cfg.UseMemoryQueue {
		t.Error("expected memory queue enabled")
	}
	if cfg.ExplanationBatchSize != 3 {
		t.Errorf("expected batch size 3, got %d", cfg.ExplanationBatchSize)
	}
	if cfg.ExtractorTimeout != 15*time.Second {
		t.Errorf("expected extractor timeout 15s, got %s", cfg.ExtractorTimeout)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("WORKER_COUNT", "not-a-number")
	t.Setenv("USE_MEMORY_QUEUE", "maybe")
	t.Setenv("LLM_TIMEOUT", "soon")

	cfg := Load()

	if cfg.WorkerCount != 2 {
		t.Errorf("expected fallback worker count 2, got %d", cfg.WorkerCount)
	}
	if cfg.UseMemoryQueue {
		t.Error("expected fallback memory queue false")
	}
	if cfg.LLMTimeout != 90*time.Second {
		t.Errorf("expected fallback llm timeout, got %s", cfg.LLMTimeout)
	}
}
