// Package config loads command defaults from the environment.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds environment-provided defaults. Command-line flags override
// every field.
type Config struct {
	// DB is the database path; empty selects an in-memory database.
	DB string `env:"SQLBRIDGE_DB"`
	// Driver is "sqlite3" (cgo) or "sqlite" (pure Go).
	Driver string `env:"SQLBRIDGE_DRIVER" envDefault:"sqlite3"`
	// BusyTimeout bounds how long a statement waits on a locked database.
	BusyTimeout time.Duration `env:"SQLBRIDGE_BUSY_TIMEOUT" envDefault:"5s"`
	// Format is the output format, "text" or "json".
	Format string `env:"SQLBRIDGE_FORMAT" envDefault:"text"`
	// LogLevel is the minimum level written to stderr.
	LogLevel slog.Level `env:"SQLBRIDGE_LOG_LEVEL" envDefault:"info"`
	// TxPerMigration wraps each migration and its ledger row in a transaction.
	TxPerMigration bool `env:"SQLBRIDGE_TX_PER_MIGRATION" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load returns the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		return Config{}, fmt.Errorf("parse env: SQLBRIDGE_FORMAT must be text or json, got %q", cfg.Format)
	}
	return cfg, nil
}
