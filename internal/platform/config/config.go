package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Port    string
	GinMode string

	DatabaseURL   string
	MigrateOnBoot bool

	JWTSecret string

	PortalBaseURL     string
	PortalHeadless    bool
	PortalSnapshotDir string

	SearchMaxAttempts    int
	SearchBaseDelay      time.Duration
	SearchOverallTimeout time.Duration

	SweepWorkers int

	RateLimitSearches int
	RateLimitWindow   time.Duration

	AllowedOrigins string
}

// Load reads environment variables into a Config with sensible defaults.
func Load() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		GinMode:           getEnv("GIN_MODE", "release"),
		DatabaseURL:       strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		PortalBaseURL:     strings.TrimSpace(os.Getenv("PORTAL_BASE_URL")),
		PortalSnapshotDir: strings.TrimSpace(os.Getenv("PORTAL_SNAPSHOT_DIR")),
		AllowedOrigins:    strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")),
	}

	var err error
	if cfg.MigrateOnBoot, err = parseBoolEnv("MIGRATE_ON_BOOT", true); err != nil {
		return Config{}, fmt.Errorf("parse MIGRATE_ON_BOOT: %w", err)
	}
	if cfg.PortalHeadless, err = parseBoolEnv("PORTAL_HEADLESS", true); err != nil {
		return Config{}, fmt.Errorf("parse PORTAL_HEADLESS: %w", err)
	}
	if cfg.SearchMaxAttempts, err = parseIntEnv("SEARCH_MAX_ATTEMPTS", 2); err != nil {
		return Config{}, fmt.Errorf("parse SEARCH_MAX_ATTEMPTS: %w", err)
	}
	if cfg.SearchBaseDelay, err = parseDurationEnv("SEARCH_BASE_DELAY", 2*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse SEARCH_BASE_DELAY: %w", err)
	}
	if cfg.SearchOverallTimeout, err = parseDurationEnv("SEARCH_OVERALL_TIMEOUT", 90*time.Second); err != nil {
		return Config{}, fmt.Errorf("parse SEARCH_OVERALL_TIMEOUT: %w", err)
	}
	if cfg.SweepWorkers, err = parseIntEnv("SWEEP_WORKERS", 3); err != nil {
		return Config{}, fmt.Errorf("parse SWEEP_WORKERS: %w", err)
	}
	if cfg.RateLimitSearches, err = parseIntEnv("RATE_LIMIT_SEARCHES", 5); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_SEARCHES: %w", err)
	}
	if cfg.RateLimitWindow, err = parseDurationEnv("RATE_LIMIT_WINDOW", 10*time.Minute); err != nil {
		return Config{}, fmt.Errorf("parse RATE_LIMIT_WINDOW: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func parseBoolEnv(key string, defaultVal bool) (bool, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.ParseBool(val)
}

func parseIntEnv(key string, defaultVal int) (int, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(val)
}

func parseDurationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(val)
}
