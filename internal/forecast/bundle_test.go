package forecast

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/scoring"
)

const sampleBundle = `{
  "latitude": 40.0, "longitude": -3.7, "species": "carpa", "mode": "carpfishing",
  "anchorNow": "2026-06-01T08:00:00Z",
  "weather": [
    {"time": "2026-06-01T08:00", "temperature": 20, "humidity": 70, "pressure": 1012,
     "windSpeed": 8, "windDirection": null, "precipitation": 0, "cloudCover": 50,
     "isDay": true, "shortwaveRadiation": 420}
  ],
  "astro": {"sunrise": "2026-06-01T06:45:00Z", "sunset": "2026-06-01T21:30:00Z", "moonIllumination": 98, "moonPhase": 0.5},
  "hydro": {"waterLevel": 1.2, "waterFlow": null, "waterTemp": 16.5},
  "marine": {"waveHeight": 0.6}
}`

func TestDecodeBundle(t *testing.T) {
	b, err := DecodeBundle(strings.NewReader(sampleBundle))
	require.NoError(t, err)

	in, err := b.Input(time.Now())
	require.NoError(t, err)

	assert.Equal(t, 40.0, in.Latitude)
	assert.Equal(t, models.SpeciesCarp, in.Species)
	assert.Equal(t, models.ModeCarpfishing, in.Mode)
	assert.True(t, in.AnchorNow.Equal(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)))

	require.Len(t, in.Weather, 1)
	w := in.Weather[0]
	assert.Equal(t, "2026-06-01T08:00", w.Time)
	assert.Equal(t, 1012.0, w.Pressure)
	assert.False(t, w.WindDirection.Valid)
	assert.True(t, w.IsDay.Valid && w.IsDay.Bool)
	assert.Equal(t, 420.0, w.ShortwaveRadiation.Float64)

	assert.Equal(t, 0.5, in.Astro.MoonPhase)
	assert.Equal(t, 98.0, in.Astro.MoonIllumination.Float64)

	require.NotNil(t, in.Hydro)
	assert.Equal(t, 16.5, in.Hydro.WaterTemp.Float64)
	assert.False(t, in.Hydro.WaterFlow.Valid)
	require.NotNil(t, in.Marine)
	assert.Equal(t, 0.6, in.Marine.WaveHeight)
}

func TestBundleInput_Defaults(t *testing.T) {
	raw := `{"latitude": -33.9, "longitude": 151.2, "species": "zander",
	  "weather": [{"time": "2026-01-10T05:00:00Z", "temperature": 22, "humidity": 60, "pressure": 1010,
	    "windSpeed": 5, "precipitation": 0, "cloudCover": 10}],
	  "astro": {"sunrise": "2026-01-10T05:50:00+11:00", "sunset": "2026-01-10T20:10:00+11:00"}}`
	b, err := DecodeBundle(strings.NewReader(raw))
	require.NoError(t, err)

	now := time.Date(2026, 1, 10, 4, 0, 0, 0, time.UTC)
	in, err := b.Input(now)
	require.NoError(t, err)

	assert.Equal(t, models.SpeciesGeneral, in.Species)
	assert.Equal(t, models.ModeCarpfishing, in.Mode)
	assert.Equal(t, now, in.AnchorNow)
	assert.Nil(t, in.Hydro)
	assert.Nil(t, in.Marine)
	assert.InDelta(t, scoring.MoonPhaseFraction(now), in.Astro.MoonPhase, 1e-12)
	assert.True(t, in.Astro.MoonIllumination.Valid)
	assert.InDelta(t, scoring.MoonIllumination(now), in.Astro.MoonIllumination.Float64, 1e-12)
}

func TestDecodeBundle_Invalid(t *testing.T) {
	hour := `{"time": "2026-06-01T08:00:00Z", "temperature": 20, "humidity": 70, "pressure": 1012, "windSpeed": 8, "precipitation": 0, "cloudCover": 50}`
	astro := `"astro": {"sunrise": "2026-06-01T06:45:00Z", "sunset": "2026-06-01T21:30:00Z"}`

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"latitude":`},
		{"latitude out of range", `{"latitude": 91, "longitude": 0, "weather": [` + hour + `], ` + astro + `}`},
		{"longitude missing", `{"latitude": 40, "weather": [` + hour + `], ` + astro + `}`},
		{"no weather", `{"latitude": 40, "longitude": 0, "weather": [], ` + astro + `}`},
		{"bad mode", `{"latitude": 40, "longitude": 0, "mode": "fly", "weather": [` + hour + `], ` + astro + `}`},
		{"missing pressure", `{"latitude": 40, "longitude": 0, "weather": [{"time": "2026-06-01T08:00:00Z", "temperature": 20, "humidity": 70, "windSpeed": 8, "precipitation": 0, "cloudCover": 50}], ` + astro + `}`},
		{"no astro", `{"latitude": 40, "longitude": 0, "weather": [` + hour + `]}`},
		{"moon phase out of range", `{"latitude": 40, "longitude": 0, "weather": [` + hour + `], "astro": {"sunrise": "a", "sunset": "b", "moonPhase": 1.5}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBundle(strings.NewReader(tt.raw))
			assert.ErrorIs(t, err, ErrInvalidBundle)
		})
	}
}

func TestBundleInput_BadAnchor(t *testing.T) {
	b, err := DecodeBundle(strings.NewReader(sampleBundle))
	require.NoError(t, err)
	b.AnchorNow = "yesterday"

	_, err = b.Input(time.Now())
	assert.ErrorIs(t, err, ErrInvalidBundle)
}
