package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %s, want 1h", cfg.CacheTTL)
	}
	if cfg.SweepInterval != 10*time.Minute {
		t.Errorf("SweepInterval = %s, want 10m", cfg.SweepInterval)
	}
	if cfg.MaxUploadBytes != 32<<20 {
		t.Errorf("MaxUploadBytes = %d, want 32MiB", cfg.MaxUploadBytes)
	}
	if cfg.ReshapePolicy != "reshape" {
		t.Errorf("ReshapePolicy = %q, want reshape", cfg.ReshapePolicy)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("RETENTION_WINDOW", "2h")
	t.Setenv("MAX_UPLOAD_BYTES", "1048576")
	t.Setenv("RESHAPE_POLICY", "align-only")

	cfg := Load()

	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %s, want 30m", cfg.CacheTTL)
	}
	if cfg.RetentionWindow != 2*time.Hour {
		t.Errorf("RetentionWindow = %s, want 2h", cfg.RetentionWindow)
	}
	if cfg.MaxUploadBytes != 1<<20 {
		t.Errorf("MaxUploadBytes = %d, want 1MiB", cfg.MaxUploadBytes)
	}
	if cfg.ReshapePolicy != "align-only" {
		t.Errorf("ReshapePolicy = %q, want align-only", cfg.ReshapePolicy)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	t.Setenv("MAX_UPLOAD_BYTES", "-5")

	cfg := Load()

	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %s, want default 1h", cfg.CacheTTL)
	}
	if cfg.MaxUploadBytes != 32<<20 {
		t.Errorf("MaxUploadBytes = %d, want default 32MiB", cfg.MaxUploadBytes)
	}
}
