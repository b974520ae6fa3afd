package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/carpcast/internal/config"
	"github.com/lox/carpcast/internal/forecast"
	"github.com/lox/carpcast/internal/models"
)

func TestRenderResult(t *testing.T) {
	water := 16.5
	res := &forecast.Result{
		RunID:   "run-1",
		Species: models.SpeciesCarp,
		Points: []forecast.Point{
			{Time: "2026-06-01T08:00:00Z", WaterTemp: &water, Score: models.ActivityScore{Overall: 72, Recommendation: models.RecommendationGood, Confidence: 0.8}},
			{Time: "2026-06-01T09:00:00Z", Failed: true, QualityFlags: []string{forecast.FlagHumidityInvalid},
				Score: models.ActivityScore{Overall: 50, Recommendation: models.RecommendationUnknown, Confidence: 0.65}},
		},
		BestWindows: []models.BestWindow{{Start: "2026-06-01T08:00:00Z", End: "2026-06-01T09:00:00Z", Score: 61, Reason: "2h window"}},
	}

	var buf bytes.Buffer
	require.NoError(t, renderResult(&buf, res))
	out := buf.String()

	assert.Contains(t, out, "Carp, 2 hours")
	assert.Contains(t, out, "2026-06-01T08:00:00Z")
	assert.Contains(t, out, "16.5")
	assert.Contains(t, out, "humidity_invalid,scoring failed")
	assert.Contains(t, out, "2h window")
	assert.Contains(t, out, "Best windows today")
	assert.Contains(t, out, "none")
}

func TestApplyOverrides(t *testing.T) {
	cfg := &config.Config{DBPath: "data/carpcast.db", LogLevel: "info", WindowHours: 3, TopN: 3, Workers: 4}
	cli := CLI{DB: "/tmp/other.db", TopN: 5}
	cli.applyOverrides(cfg)

	assert.Equal(t, "/tmp/other.db", cfg.DBPath)
	assert.Equal(t, 5, cfg.TopN)
	assert.Equal(t, 3, cfg.WindowHours)
	assert.Equal(t, "info", cfg.LogLevel)
}
