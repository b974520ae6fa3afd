package dump

import (
	"database/sql"

	"github.com/lox/carpcast/internal/models"
)

// Weather is the subset of an hour's weather recorded in a dump.
type Weather struct {
	Temperature   *float64 `json:"temperature"`
	Pressure      *float64 `json:"pressure"`
	Humidity      *float64 `json:"humidity"`
	WindSpeed     *float64 `json:"windSpeed"`
	Precipitation *float64 `json:"precipitation"`
}

type Derived struct {
	DeltaPressure1h    *float64 `json:"deltaPressure1h"`
	DeltaPressure3hAvg *float64 `json:"deltaPressure3hAvg"`
	DeltaTemp1h        *float64 `json:"deltaTemp1h"`
	RainPrev6h         *float64 `json:"rainPrev6h"`
	RainSum24h         *float64 `json:"rainSum24h"`
	WindStability3h    *float64 `json:"windStability3h"`
}

type Breakdown struct {
	Subscores models.Subscores      `json:"subscores"`
	Weights   models.Weights        `json:"weights"`
	Bio       models.BioMultipliers `json:"bio"`
}

// Entry is one scored hour as written to, and read back from, a debug dump.
// Every numeric field is nullable so that dumps from other producers load
// without loss.
type Entry struct {
	Time                string          `json:"time"`
	Weather             Weather         `json:"weather"`
	Derived             Derived         `json:"derived"`
	WaterTempForScoring *float64        `json:"waterTempForScoring"`
	Breakdown           *Breakdown      `json:"breakdown,omitempty"`
	Overall             *float64        `json:"activity_overall"`
	Confidence          *float64        `json:"activity_confidence"`
	Factors             *models.Factors `json:"factors,omitempty"`
}

// NewEntry records the inputs and result of one scored hour.
func NewEntry(w models.WeatherData, d models.DerivedFeatures, waterTemp sql.NullFloat64, score models.ActivityScore) Entry {
	overall := float64(score.Overall)
	confidence := score.Confidence
	factors := score.Factors
	return Entry{
		Time: w.Time,
		Weather: Weather{
			Temperature:   &w.Temperature,
			Pressure:      &w.Pressure,
			Humidity:      &w.Humidity,
			WindSpeed:     &w.WindSpeed,
			Precipitation: &w.Precipitation,
		},
		Derived: Derived{
			DeltaPressure1h:    ptr(d.DeltaPressure1h),
			DeltaPressure3hAvg: ptr(d.DeltaPressure3hAvg),
			DeltaTemp1h:        ptr(d.DeltaTemp1h),
			RainPrev6h:         ptr(d.RainPrev6h),
			RainSum24h:         ptr(d.RainSum24h),
			WindStability3h:    ptr(d.WindStability3h),
		},
		WaterTempForScoring: ptr(waterTemp),
		Breakdown: &Breakdown{
			Subscores: score.Breakdown.Subscores,
			Weights:   score.Breakdown.WeightsUsed,
			Bio:       score.Breakdown.BioMultipliers,
		},
		Overall:    &overall,
		Confidence: &confidence,
		Factors:    &factors,
	}
}

func ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
