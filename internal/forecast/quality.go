package forecast

import (
	"database/sql"

	"github.com/lox/carpcast/internal/models"
)

const (
	FlagTempOutOfRange     = "temp_out_of_range"
	FlagHumidityInvalid    = "humidity_invalid"
	FlagWindDirInvalid     = "wind_dir_invalid"
	FlagWindSpeedUnlikely  = "wind_speed_unlikely"
	FlagPressureOutOfRange = "pressure_out_of_range"
	FlagRadiationNegative  = "radiation_negative"
	FlagPrecipNegative     = "precip_negative"
	FlagCloudInvalid       = "cloud_invalid"
)

// QualityFlags returns the sanity checks an hour fails. Flagged hours are
// still scored; the flags are informational.
func QualityFlags(w models.WeatherData) []string {
	var flags []string

	if w.Temperature < -30 || w.Temperature > 50 {
		flags = append(flags, FlagTempOutOfRange)
	}
	if w.Humidity < 0 || w.Humidity > 100 {
		flags = append(flags, FlagHumidityInvalid)
	}
	if outside(w.WindDirection, 0, 360) {
		flags = append(flags, FlagWindDirInvalid)
	}
	if w.WindSpeed < 0 || w.WindSpeed > 200 {
		flags = append(flags, FlagWindSpeedUnlikely)
	}
	if w.Pressure < 900 || w.Pressure > 1100 {
		flags = append(flags, FlagPressureOutOfRange)
	}
	if w.ShortwaveRadiation.Valid && w.ShortwaveRadiation.Float64 < 0 {
		flags = append(flags, FlagRadiationNegative)
	}
	if w.Precipitation < 0 {
		flags = append(flags, FlagPrecipNegative)
	}
	if w.CloudCover < 0 || w.CloudCover > 100 ||
		outside(w.CloudCoverLow, 0, 100) || outside(w.CloudCoverMid, 0, 100) || outside(w.CloudCoverHigh, 0, 100) {
		flags = append(flags, FlagCloudInvalid)
	}

	return flags
}

func outside(v sql.NullFloat64, lo, hi float64) bool {
	return v.Valid && (v.Float64 < lo || v.Float64 > hi)
}
