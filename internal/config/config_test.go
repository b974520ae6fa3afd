package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/carpcast.db", cfg.DBPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 3, cfg.WindowHours)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, 2*time.Hour, cfg.WaterTempWindow)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 30, cfg.SnapshotRetentionDays)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CARPCAST_DB_PATH", "/tmp/x.db")
	t.Setenv("CARPCAST_LOG_LEVEL", "debug")
	t.Setenv("CARPCAST_WINDOW_HOURS", "4")
	t.Setenv("CARPCAST_WATER_TEMP_WINDOW", "90m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", cfg.DBPath)
	assert.Equal(t, 4, cfg.WindowHours)
	assert.Equal(t, 90*time.Minute, cfg.WaterTempWindow)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"log level", "CARPCAST_LOG_LEVEL", "verbose"},
		{"window hours", "CARPCAST_WINDOW_HOURS", "0"},
		{"top n", "CARPCAST_TOP_N", "11"},
		{"workers", "CARPCAST_WORKERS", "100"},
		{"not a number", "CARPCAST_PORT", "http"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
