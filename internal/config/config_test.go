package config

import (
	"os"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	os.Unsetenv("SERVER_ADDR")
	os.Unsetenv("DATABASE_DRIVER")
	os.Unsetenv("EXTRACTOR_DIM")

	cfg := Load()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("expected default driver postgres, got %s", cfg.Database.Driver)
	}
	if cfg.Extractor.Dim != 128 {
		t.Errorf("expected default embedding dim 128, got %d", cfg.Extractor.Dim)
	}
	if cfg.Matcher.Strategy != "linear" {
		t.Errorf("expected default matcher strategy linear, got %s", cfg.Matcher.Strategy)
	}
}

func TestLoad_CustomDim(t *testing.T) {
	t.Setenv("EXTRACTOR_DIM", "512")

	cfg := Load()

	if cfg.Extractor.Dim != 512 {
		t.Errorf("expected embedding dim 512, got %d", cfg.Extractor.Dim)
	}
}

func TestLoad_InvalidDim(t *testing.T) {
	t.Setenv("EXTRACTOR_DIM", "invalid")

	cfg := Load()

	if cfg.Extractor.Dim != 128 {
		t.Errorf("expected default embedding dim 128 for invalid input, got %d", cfg.Extractor.Dim)
	}
}

func TestMatchThreshold_ModelDefault(t *testing.T) {
	os.Unsetenv("MATCH_THRESHOLD")
	t.Setenv("EXTRACTOR_MODEL", "face_recognition")

	cfg := Load()

	if got := cfg.MatchThreshold(); got != 0.50 {
		t.Errorf("expected face_recognition threshold 0.50, got %f", got)
	}
}

func TestMatchThreshold_KnownModel(t *testing.T) {
	os.Unsetenv("MATCH_THRESHOLD")
	t.Setenv("EXTRACTOR_MODEL", "arcface")

	cfg := Load()

	if got := cfg.MatchThreshold(); got != 0.45 {
		t.Errorf("expected arcface threshold 0.45, got %f", got)
	}
}

func TestMatchThreshold_UnknownModelFallsBack(t *testing.T) {
	os.Unsetenv("MATCH_THRESHOLD")
	t.Setenv("EXTRACTOR_MODEL", "some-future-model")

	cfg := Load()

	if got := cfg.MatchThreshold(); got != 0.50 {
		t.Errorf("expected fallback threshold 0.50, got %f", got)
	}
}

func TestMatchThreshold_EnvOverride(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "0.35")
	t.Setenv("EXTRACTOR_MODEL", "arcface")

	cfg := Load()

	if got := cfg.MatchThreshold(); got != 0.35 {
		t.Errorf("expected overridden threshold 0.35, got %f", got)
	}
}

func TestMatchThreshold_InvalidOverrideIgnored(t *testing.T) {
	t.Setenv("MATCH_THRESHOLD", "not-a-number")
	t.Setenv("EXTRACTOR_MODEL", "arcface")

	cfg := Load()

	if got := cfg.MatchThreshold(); got != 0.45 {
		t.Errorf("expected model default 0.45, got %f", got)
	}
}
