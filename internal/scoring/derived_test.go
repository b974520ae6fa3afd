package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lox/carpcast/internal/models"
)

func TestComputeDerivedFeatures_FirstHour(t *testing.T) {
	series := hours(5, nil)
	assert.Equal(t, models.DerivedFeatures{}, ComputeDerivedFeatures(series, 0))
	assert.Equal(t, models.DerivedFeatures{}, ComputeDerivedFeatures(series, 5))
	assert.Equal(t, models.DerivedFeatures{}, ComputeDerivedFeatures(series, -1))
}

func TestComputeDerivedFeatures(t *testing.T) {
	series := hours(30, func(i int, w *models.WeatherData) {
		w.Pressure = 1020 - float64(i)
		w.Temperature = 10 + float64(i)/2
		w.Precipitation = 1
		w.WindSpeed = 10
	})

	d := ComputeDerivedFeatures(series, 1)
	assert.Equal(t, some(-1), d.DeltaPressure1h)
	assert.Equal(t, some(0.5), d.DeltaTemp1h)
	assert.Equal(t, some(1), d.RainPrev6h)
	assert.False(t, d.DeltaPressure3hAvg.Valid)
	assert.False(t, d.WindStability3h.Valid)

	d = ComputeDerivedFeatures(series, 2)
	assert.Equal(t, some(1), d.WindStability3h)

	d = ComputeDerivedFeatures(series, 3)
	assert.Equal(t, some(-1), d.DeltaPressure3hAvg)

	d = ComputeDerivedFeatures(series, 29)
	assert.Equal(t, some(6), d.RainPrev6h)
	assert.Equal(t, some(24), d.RainSum24h)
}

func TestComputeDerivedFeatures_FullHistory(t *testing.T) {
	series := hours(30, func(i int, w *models.WeatherData) {
		w.Pressure = 1015 + float64(i%3)
		w.Precipitation = 0.5
		w.WindSpeed = 6
	})

	for _, i := range []int{24, 29} {
		d := ComputeDerivedFeatures(series, i)
		assert.True(t, d.DeltaPressure1h.Valid, "DeltaPressure1h at %d", i)
		assert.True(t, d.DeltaPressure3hAvg.Valid, "DeltaPressure3hAvg at %d", i)
		assert.True(t, d.DeltaTemp1h.Valid, "DeltaTemp1h at %d", i)
		assert.True(t, d.RainPrev6h.Valid, "RainPrev6h at %d", i)
		assert.True(t, d.RainSum24h.Valid, "RainSum24h at %d", i)
		assert.True(t, d.WindStability3h.Valid, "WindStability3h at %d", i)
		assert.Equal(t, some(12), d.RainSum24h)
	}
}

func TestComputeDerivedFeatures_WindStability(t *testing.T) {
	series := hours(3, func(i int, w *models.WeatherData) {
		w.WindSpeed = []float64{0, 10, 20}[i]
	})
	d := ComputeDerivedFeatures(series, 2)
	// mean 10, population std ~8.165
	assert.InDelta(t, 1-8.16497/10, d.WindStability3h.Float64, 1e-4)
}
