package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name.
const Prefix = "CARPCAST"

type Config struct {
	DBPath                string        `envconfig:"DB_PATH" default:"data/carpcast.db" validate:"required"`
	Port                  int           `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	LogLevel              string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	WindowHours           int           `envconfig:"WINDOW_HOURS" default:"3" validate:"min=1,max=24"`
	TopN                  int           `envconfig:"TOP_N" default:"3" validate:"min=1,max=10"`
	WaterTempWindow       time.Duration `envconfig:"WATER_TEMP_WINDOW" default:"2h" validate:"min=0"`
	Workers               int           `envconfig:"WORKERS" default:"4" validate:"min=1,max=64"`
	SnapshotRetentionDays int           `envconfig:"SNAPSHOT_RETENTION_DAYS" default:"30" validate:"min=0"`
}

// Load reads the CARPCAST_* environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: invalid %s (%s=%s)", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
