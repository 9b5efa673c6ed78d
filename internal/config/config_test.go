package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultCount != 5 {
		t.Errorf("expected default count 5, got %d", cfg.Recommend.DefaultCount)
	}
	if cfg.Recommend.MinThreshold != 3 {
		t.Errorf("expected default threshold 3, got %d", cfg.Recommend.MinThreshold)
	}
	if cfg.Claims.Backend != ClaimsBackendPostgres {
		t.Errorf("expected postgres claims backend, got %q", cfg.Claims.Backend)
	}
	if cfg.Retention.Interval != 6*time.Hour {
		t.Errorf("expected 6h retention interval, got %v", cfg.Retention.Interval)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("RECOMMEND_DEFAULT_COUNT", "10")
	t.Setenv("RECOMMEND_MIN_THRESHOLD", "7")
	t.Setenv("CLAIMS_BACKEND", "redis")
	t.Setenv("RETENTION_INTERVAL", "1h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultCount != 10 || cfg.Recommend.MinThreshold != 7 {
		t.Errorf("unexpected recommend config: %+v", cfg.Recommend)
	}
	if cfg.Claims.Backend != ClaimsBackendRedis {
		t.Errorf("expected redis backend, got %q", cfg.Claims.Backend)
	}
	if cfg.Retention.Interval != time.Hour {
		t.Errorf("expected 1h interval, got %v", cfg.Retention.Interval)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		return cfg
	}

	cfg := base()
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for port 0")
	}

	cfg = base()
	cfg.Database.DSN = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty DSN")
	}

	cfg = base()
	cfg.Recommend.DefaultCount = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero default count")
	}

	cfg = base()
	cfg.Recommend.MinThreshold = cfg.Recommend.DefaultCount + 1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for threshold above count")
	}

	cfg = base()
	cfg.Claims.Backend = "etcd"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown claims backend")
	}
}

func TestInvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("RETENTION_INTERVAL", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected fallback to 8080, got %d", cfg.Server.Port)
	}
	if cfg.Retention.Interval != 6*time.Hour {
		t.Errorf("expected fallback to 6h, got %v", cfg.Retention.Interval)
	}
}
