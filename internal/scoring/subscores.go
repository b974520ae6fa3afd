package scoring

import (
	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/timeutil"
)

const goldenHourMs = 60 * 60 * 1000

// astroScore rewards the hour either side of sunrise and sunset, scaled per
// species. Unlike the meteo dawn feature it fails on unparsable sun times.
func astroScore(astro models.AstroData, nowMs int64, species models.FishSpecies, reasons *reasonList) (float64, error) {
	sunrise, sunset, err := sunTimes(astro)
	if err != nil {
		return 0, err
	}

	golden := (nowMs >= sunrise-goldenHourMs && nowMs <= sunrise+goldenHourMs) ||
		(nowMs >= sunset-goldenHourMs && nowMs <= sunset+goldenHourMs)

	base := 50.0
	if golden {
		base += 30
		reasons.add("Golden hour (sunrise/sunset)")
	}

	mult := 1.0
	if cfg, ok := lookupSpecies(species); ok {
		mult = cfg.astroMultiplier
	}
	return clamp(base*mult, 0, 100), nil
}

func sunTimes(astro models.AstroData) (sunrise, sunset int64, err error) {
	sunrise, err = timeutil.ParseMs(astro.Sunrise)
	if err != nil {
		return 0, 0, &ParseError{Field: "sunrise", Value: astro.Sunrise}
	}
	sunset, err = timeutil.ParseMs(astro.Sunset)
	if err != nil {
		return 0, 0, &ParseError{Field: "sunset", Value: astro.Sunset}
	}
	return sunrise, sunset, nil
}

// hydroScore rewards the presence of each hydrology reading.
func hydroScore(h models.HydroData, reasons *reasonList) float64 {
	score := 50.0
	if h.WaterLevel.Valid {
		score += 20
		reasons.add("Water level data available")
	}
	if h.WaterFlow.Valid {
		score += 20
		reasons.add("Water flow data available")
	}
	if h.WaterTemp.Valid {
		score += 10
		reasons.add("Water temperature data available")
	}
	return min(100, score)
}

func marineScore(m models.MarineData, reasons *reasonList) float64 {
	score := 30.0
	if m.WaveHeight <= 1.0 {
		score += 20
		reasons.add("Favorable waves")
	} else {
		score += 5
		reasons.add("Moderate waves")
	}
	return min(100, score)
}
