// Package config loads and sanitizes the runtime configuration for the
// Parlor chat service from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the server configuration, including the security controls
// applied to incoming WebSocket connections.
type Config struct {
	Port           string        `env:"PARLOR_PORT" envDefault:":8080"`
	DBPath         string        `env:"PARLOR_DB_PATH" envDefault:"parlor.db"`
	AllowedOrigins []string      `env:"PARLOR_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:8080"`
	MaxMessageSize int64         `env:"PARLOR_MAX_MESSAGE_SIZE" envDefault:"4096"`
	JWTSecret      string        `env:"PARLOR_JWT_SECRET" envDefault:"parlor-dev-secret-change-me"`
	LogLevel       string        `env:"PARLOR_LOG_LEVEL" envDefault:"info"`
	RateLimit      RateLimitConfig
	Presence       PresenceConfig
}

// RateLimitConfig defines the parameters for per-connection message rate limiting.
type RateLimitConfig struct {
	Burst          int           `env:"PARLOR_RATE_LIMIT_BURST" envDefault:"10"`
	RefillInterval time.Duration `env:"PARLOR_RATE_LIMIT_REFILL" envDefault:"1s"`
}

// PresenceConfig controls the staleness sweep for presence entries. A TTL of
// zero disables the sweep entirely.
type PresenceConfig struct {
	TTL           time.Duration `env:"PARLOR_PRESENCE_TTL" envDefault:"0"`
	SweepInterval time.Duration `env:"PARLOR_PRESENCE_SWEEP_INTERVAL" envDefault:"30s"`
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in the working directory. Missing variables fall back to
// defaults; invalid values are sanitized rather than rejected.
func Load() (Config, error) {
	// A missing .env file is not an error; the environment wins either way.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return sanitize(cfg), nil
}

// Default returns the configuration used when no environment is present.
func Default() Config {
	return sanitize(Config{})
}

func sanitize(cfg Config) Config {
	if cfg.Port == "" {
		cfg.Port = ":8080"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "parlor.db"
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 4096
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 10
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if cfg.Presence.TTL < 0 {
		cfg.Presence.TTL = 0
	}
	if cfg.Presence.SweepInterval <= 0 {
		cfg.Presence.SweepInterval = 30 * time.Second
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	return cfg
}
