package config

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SUBMIT_RATE_PER_MINUTE", "")
	t.Setenv("MAX_VIOLATIONS", "not-a-number")

	cfg := Load()
	if cfg.SubmitRatePerMinute != 10 {
		t.Fatalf("expected default submit rate 10, got %d", cfg.SubmitRatePerMinute)
	}
	if cfg.MaxViolations != 3 {
		t.Fatalf("expected fallback max violations 3, got %d", cfg.MaxViolations)
	}
	if cfg.DefaultDurationMinutes != 180 || cfg.DefaultQuestionMarks != 2 {
		t.Fatalf("unexpected test defaults: %d minutes, %d marks", cfg.DefaultDurationMinutes, cfg.DefaultQuestionMarks)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("ATTEMPT_IDEMPOTENCY_TTL_MINUTES", "120")

	cfg := Load()
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %#v", cfg.AllowedOrigins)
	}
	if cfg.AttemptIdempotencyTTL != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %s", cfg.AttemptIdempotencyTTL)
	}
}

func TestCacheKeys(t *testing.T) {
	id := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	if got := CacheKey.TestAnswerKey(id); got != "test:11111111-1111-1111-1111-111111111111:key" {
		t.Fatalf("unexpected answer key: %s", got)
	}
	if CacheKey.TestPaperKey(id) == CacheKey.TestAnswerKey(id) {
		t.Fatal("paper and answer key must not share a key")
	}
}
