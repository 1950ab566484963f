// Package config loads server settings from the environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/warp/icl-engine/engine"
)

// Config holds all application configuration.
// Values are loaded from environment variables with defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	DBPath string

	// Status refresh job
	StatusRefreshInterval time.Duration
	StatusRefreshEnabled  bool
	RefreshConcurrency    int

	// Engine
	DecimalPlaces int32
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	cfg := &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DBPath: getEnv("DB_PATH", "icl.db"),

		StatusRefreshInterval: getEnvDuration("STATUS_REFRESH_INTERVAL", time.Hour),
		StatusRefreshEnabled:  getEnv("STATUS_REFRESH_ENABLED", "true") == "true",
		RefreshConcurrency:    getEnvInt("REFRESH_CONCURRENCY", 8),

		DecimalPlaces: int32(getEnvInt("DECIMAL_PLACES", int(engine.DefaultPlaces))),
	}

	if cfg.DecimalPlaces < engine.MinPlaces {
		cfg.DecimalPlaces = engine.MinPlaces
	}
	if cfg.RefreshConcurrency < 1 {
		cfg.RefreshConcurrency = 1
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
