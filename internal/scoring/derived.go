package scoring

import (
	"math"

	"github.com/lox/carpcast/internal/models"
)

// ComputeDerivedFeatures derives trend features for series[i]. The series is
// assumed to be hourly and ascending; features needing history before the
// start of the series are left invalid.
func ComputeDerivedFeatures(series []models.WeatherData, i int) models.DerivedFeatures {
	var d models.DerivedFeatures
	if i < 0 || i >= len(series) {
		return d
	}
	cur := series[i]

	if i >= 1 {
		prev := series[i-1]
		d.DeltaPressure1h = some(cur.Pressure - prev.Pressure)
		d.DeltaTemp1h = some(cur.Temperature - prev.Temperature)
		d.RainPrev6h = some(sumPrecip(series, i-6, i-1))
		d.RainSum24h = some(sumPrecip(series, i-24, i-1))
	}

	if i >= 3 {
		var sum float64
		var n int
		for k := i - 3; k <= i; k++ {
			if k-1 < 0 {
				continue
			}
			sum += series[k].Pressure - series[k-1].Pressure
			n++
		}
		d.DeltaPressure3hAvg = some(sum / float64(n))
	}

	if i >= 2 {
		speeds := [3]float64{series[i-2].WindSpeed, series[i-1].WindSpeed, cur.WindSpeed}
		mean := (speeds[0] + speeds[1] + speeds[2]) / 3
		var variance float64
		for _, v := range speeds {
			variance += (v - mean) * (v - mean)
		}
		std := math.Sqrt(variance / 3)
		d.WindStability3h = some(clamp(1-std/math.Max(1, mean), 0, 1))
	}

	return d
}

func sumPrecip(series []models.WeatherData, from, to int) float64 {
	from = max(0, from)
	to = min(len(series)-1, to)
	var sum float64
	for k := from; k <= to; k++ {
		sum += series[k].Precipitation
	}
	return sum
}
