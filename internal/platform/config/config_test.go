package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/fleet")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release", cfg.GinMode)
	}
	if !cfg.MigrateOnBoot {
		t.Error("MigrateOnBoot should default to true")
	}
	if !cfg.PortalHeadless {
		t.Error("PortalHeadless should default to true")
	}
	if cfg.SearchMaxAttempts != 2 {
		t.Errorf("SearchMaxAttempts = %d, want 2", cfg.SearchMaxAttempts)
	}
	if cfg.SearchBaseDelay != 2*time.Second {
		t.Errorf("SearchBaseDelay = %v, want 2s", cfg.SearchBaseDelay)
	}
	if cfg.SearchOverallTimeout != 90*time.Second {
		t.Errorf("SearchOverallTimeout = %v, want 90s", cfg.SearchOverallTimeout)
	}
	if cfg.SweepWorkers != 3 {
		t.Errorf("SweepWorkers = %d, want 3", cfg.SweepWorkers)
	}
	if cfg.RateLimitSearches != 5 {
		t.Errorf("RateLimitSearches = %d, want 5", cfg.RateLimitSearches)
	}
	if cfg.RateLimitWindow != 10*time.Minute {
		t.Errorf("RateLimitWindow = %v, want 10m", cfg.RateLimitWindow)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("PORTAL_HEADLESS", "false")
	t.Setenv("SEARCH_MAX_ATTEMPTS", "4")
	t.Setenv("SEARCH_OVERALL_TIMEOUT", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.PortalHeadless {
		t.Error("PortalHeadless should be false")
	}
	if cfg.SearchMaxAttempts != 4 {
		t.Errorf("SearchMaxAttempts = %d, want 4", cfg.SearchMaxAttempts)
	}
	if cfg.SearchOverallTimeout != 2*time.Minute {
		t.Errorf("SearchOverallTimeout = %v, want 2m", cfg.SearchOverallTimeout)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv("SEARCH_BASE_DELAY", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed SEARCH_BASE_DELAY")
	}
}

func TestValidateMissingRequired(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing port", Config{DatabaseURL: "x", JWTSecret: "y"}},
		{"missing database url", Config{Port: "8080", JWTSecret: "y"}},
		{"missing jwt secret", Config{Port: "8080", DatabaseURL: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
