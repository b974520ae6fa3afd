package scoring

import (
	"database/sql"

	"github.com/lox/carpcast/internal/models"
)

const (
	defaultWaterTempC = 15
	minWaterTempC     = 2
	maxWaterTempC     = 34
	maxWaterStepC     = 1.5
)

// EstimateWaterTempSeries runs a simple hourly heat-balance recurrence over
// the weather series. The seed is usually a measured water temperature; if
// absent the first air temperature is used, then a fixed default.
func EstimateWaterTempSeries(series []models.WeatherData, seed sql.NullFloat64) []float64 {
	if len(series) == 0 {
		return nil
	}

	prev, ok := value(seed)
	if !ok {
		prev = defaultWaterTempC
		if finite(series[0].Temperature) {
			prev = series[0].Temperature
		}
	}

	out := make([]float64, len(series))
	for i, w := range series {
		air := prev
		if finite(w.Temperature) {
			air = w.Temperature
		}

		step := 0.08 * (air - prev)
		if sw, ok := value(w.ShortwaveRadiation); ok {
			step += 1.5 * sw / 1000
		}
		if finite(w.WindSpeed) {
			step -= 0.05 * w.WindSpeed
		}
		if !w.IsDay.Valid || w.IsDay.Bool {
			step += 0.08
		} else {
			step -= 0.04
		}

		step = clamp(step, -maxWaterStepC, maxWaterStepC)
		prev = clamp(prev+step, minWaterTempC, maxWaterTempC)
		out[i] = round2(prev)
	}
	return out
}
