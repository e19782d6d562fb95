// Package config loads cellsim defaults from the environment.
//
// Command-line flags override every value here.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Log formats accepted by CELLSIM_LOG_FORMAT.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds environment defaults for the CLI.
type Config struct {
	// DB is the run log path. Empty disables recording.
	DB string `env:"CELLSIM_DB"`

	// Workers is the stepper band count; 0 means GOMAXPROCS.
	Workers int `env:"CELLSIM_WORKERS" envDefault:"0"`

	// MaxGenerations bounds run --until-stable.
	MaxGenerations int64 `env:"CELLSIM_MAX_GENERATIONS" envDefault:"10000"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `env:"CELLSIM_LOG_FORMAT" envDefault:"text"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses Config from the environment and checks its values.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("CELLSIM_WORKERS must be >= 0, got %d", c.Workers)
	}
	if c.MaxGenerations <= 0 {
		return fmt.Errorf("CELLSIM_MAX_GENERATIONS must be > 0, got %d", c.MaxGenerations)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("CELLSIM_LOG_FORMAT must be %q or %q, got %q", LogFormatText, LogFormatJSON, c.LogFormat)
	}
	return nil
}
