// Package config defines service configuration structures and loading hooks.
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/gradelens/internal/adapters/repository"
	"github.com/okian/gradelens/internal/domain/model"
	"github.com/okian/gradelens/internal/domain/weights"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MetricsInterval is how often runtime gauges are refreshed.
	MetricsInterval time.Duration `koanf:"metrics_interval"`

	// StoreDriver is one of memory, sqlite or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the sqlite file path or postgres connection string.
	StoreDSN string `koanf:"store_dsn"`

	// SchemaPath points at a schema YAML document. Empty uses the built-in schema.
	SchemaPath string `koanf:"schema_path"`

	// MaxUploadMB caps uploaded file size.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// DedupeSize sets the size of the import deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// Weights overrides the schema's default weights when set.
	Weights map[string]float64 `koanf:"weights"`

	// LowPercentile and DropThreshold override the schema's flag thresholds when set.
	LowPercentile *int `koanf:"low_percentile"`
	DropThreshold *int `koanf:"drop_threshold"`

	// SemesterFirst and SemesterSecond override the schema's semester labels when set.
	SemesterFirst  string `koanf:"semester_first"`
	SemesterSecond string `koanf:"semester_second"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ShutdownTimeout: 10 * time.Second,
		MetricsInterval: 5 * time.Second,
		StoreDriver:     repository.DriverMemory,
		MaxUploadMB:     10,
		DedupeSize:      10_000,
	}
}

// MaxUploadBytes returns the upload cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// PeriodLabels merges configured semester labels over base.
func (c *Config) PeriodLabels(base model.PeriodLabels) model.PeriodLabels {
	if c.SemesterFirst != "" {
		base.First = c.SemesterFirst
	}
	if c.SemesterSecond != "" {
		base.Second = c.SemesterSecond
	}
	return base
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("%w: max_upload_mb must be positive", ErrInvalidConfig)
	case c.DedupeSize <= 0:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	case c.MetricsInterval <= 0:
		return fmt.Errorf("%w: metrics_interval must be positive", ErrInvalidConfig)
	}

	switch c.StoreDriver {
	case repository.DriverMemory:
	case repository.DriverSQLite, repository.DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w: store_dsn is required for %s", ErrInvalidConfig, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}

	if err := percent("low_percentile", c.LowPercentile); err != nil {
		return err
	}
	if err := percent("drop_threshold", c.DropThreshold); err != nil {
		return err
	}
	if c.Weights != nil {
		if _, err := weights.Normalize(c.Weights); err != nil {
			return fmt.Errorf("%w: weights: %w", ErrInvalidConfig, err)
		}
	}
	if c.SemesterFirst != "" && c.SemesterFirst == c.SemesterSecond {
		return fmt.Errorf("%w: semester labels must differ", ErrInvalidConfig)
	}
	return nil
}

func percent(name string, v *int) error {
	if v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: %s must be within 0..100, got %d", ErrInvalidConfig, name, *v)
	}
	return nil
}
