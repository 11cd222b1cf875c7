package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.APIPort != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.APIPort)
	}
	if cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.LLMModel)
	}
	if cfg.SessionTimeout != 45*time.Second {
		t.Fatalf("expected 45s session timeout, got %v", cfg.SessionTimeout)
	}
	if cfg.EnrichWorkers != 4 || cfg.MaxCandidates != 24 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg)
	}
	if cfg.RedisAddr != "" || cfg.NATSURL != "" {
		t.Fatalf("optional backends must default to disabled")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("SESSION_TIMEOUT", "30s")
	t.Setenv("ENRICH_WORKERS", "8")
	t.Setenv("RATE_LIMIT_RPS", "0.5")

	cfg := Load()
	if cfg.APIPort != "9090" {
		t.Fatalf("expected 9090, got %q", cfg.APIPort)
	}
	if cfg.SessionTimeout != 30*time.Second {
		t.Fatalf("expected 30s, got %v", cfg.SessionTimeout)
	}
	if cfg.EnrichWorkers != 8 {
		t.Fatalf("expected 8 workers, got %d", cfg.EnrichWorkers)
	}
	if cfg.RateLimitRPS != 0.5 {
		t.Fatalf("expected 0.5 rps, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("ENRICH_WORKERS", "many")
	t.Setenv("SESSION_TIMEOUT", "soon")

	cfg := Load()
	if cfg.EnrichWorkers != 4 {
		t.Fatalf("malformed int must fall back, got %d", cfg.EnrichWorkers)
	}
	if cfg.SessionTimeout != 45*time.Second {
		t.Fatalf("malformed duration must fall back, got %v", cfg.SessionTimeout)
	}
}
