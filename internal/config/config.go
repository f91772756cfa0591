// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage backend names accepted by FLIGHTREC_STORAGE.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Config is the full server configuration, populated from FLIGHTREC_*
// environment variables with sensible defaults for local use.
type Config struct {
	Addr    string `env:"FLIGHTREC_ADDR" envDefault:":8080"`
	DataDir string `env:"FLIGHTREC_DATA_DIR" envDefault:"./data"`
	Storage string `env:"FLIGHTREC_STORAGE" envDefault:"file"`

	RateLimitMax    int           `env:"FLIGHTREC_RATE_LIMIT_MAX" envDefault:"100"`
	RateLimitWindow time.Duration `env:"FLIGHTREC_RATE_LIMIT_WINDOW" envDefault:"1m"`

	ReadTimeout     time.Duration `env:"FLIGHTREC_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"FLIGHTREC_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"FLIGHTREC_SHUTDOWN_TIMEOUT" envDefault:"5s"`

	LogLevel string `env:"FLIGHTREC_LOG_LEVEL" envDefault:"info"`

	// DemoMode enables the unauthenticated reset and populate endpoints.
	DemoMode bool `env:"FLIGHTREC_DEMO" envDefault:"true"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.Storage != BackendFile && cfg.Storage != BackendSQLite {
		return Config{}, fmt.Errorf("unknown storage backend %q (want %s or %s)", cfg.Storage, BackendFile, BackendSQLite)
	}
	if cfg.RateLimitMax <= 0 {
		return Config{}, fmt.Errorf("rate limit max must be positive, got %d", cfg.RateLimitMax)
	}
	return cfg, nil
}
