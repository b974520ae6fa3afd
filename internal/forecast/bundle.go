package forecast

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/scoring"
	"github.com/lox/carpcast/internal/timeutil"
)

// ErrInvalidBundle wraps every decode and validation failure of an input
// bundle.
var ErrInvalidBundle = errors.New("invalid input bundle")

var validate = validator.New()

// Bundle is the JSON document accepted by the CLI and the API. Nullable
// numbers are pointers.
type Bundle struct {
	Latitude  *float64      `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64      `json:"longitude" validate:"required,min=-180,max=180"`
	Species   string        `json:"species"`
	Mode      string        `json:"mode" validate:"omitempty,oneof=carpfishing predator"`
	AnchorNow string        `json:"anchorNow"`
	Weather   []WeatherHour `json:"weather" validate:"required,min=1,dive"`
	Astro     *AstroBundle  `json:"astro" validate:"required"`
	Hydro     *HydroBundle  `json:"hydro"`
	Marine    *MarineBundle `json:"marine"`
}

type WeatherHour struct {
	Time                     string   `json:"time" validate:"required"`
	Temperature              *float64 `json:"temperature" validate:"required"`
	Humidity                 *float64 `json:"humidity" validate:"required"`
	Pressure                 *float64 `json:"pressure" validate:"required"`
	WindSpeed                *float64 `json:"windSpeed" validate:"required"`
	WindDirection            *float64 `json:"windDirection"`
	GustSpeed                *float64 `json:"gustSpeed"`
	Precipitation            *float64 `json:"precipitation" validate:"required"`
	PrecipitationProbability *float64 `json:"precipitationProbability"`
	CloudCover               *float64 `json:"cloudCover" validate:"required"`
	CloudCoverLow            *float64 `json:"cloudCoverLow"`
	CloudCoverMid            *float64 `json:"cloudCoverMid"`
	CloudCoverHigh           *float64 `json:"cloudCoverHigh"`
	ShortwaveRadiation       *float64 `json:"shortwaveRadiation"`
	UVIndex                  *float64 `json:"uvIndex"`
	IsDay                    *bool    `json:"isDay"`
	DewPoint                 *float64 `json:"dewPoint"`
	Visibility               *float64 `json:"visibility"`
}

type AstroBundle struct {
	Sunrise          string   `json:"sunrise" validate:"required"`
	Sunset           string   `json:"sunset" validate:"required"`
	MoonIllumination *float64 `json:"moonIllumination" validate:"omitempty,min=0,max=100"`
	MoonPhase        *float64 `json:"moonPhase" validate:"omitempty,min=0,max=1"`
}

type HydroBundle struct {
	WaterLevel *float64 `json:"waterLevel"`
	WaterFlow  *float64 `json:"waterFlow"`
	WaterTemp  *float64 `json:"waterTemp"`
}

type MarineBundle struct {
	WaveHeight *float64 `json:"waveHeight" validate:"required,min=0"`
}

// DecodeBundle reads and validates one bundle.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Encode renders the bundle back to JSON, including any in-memory
// overrides.
func (b *Bundle) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}

func (b *Bundle) Validate() error {
	if err := validate.Struct(b); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			if fe.Param() != "" {
				return fmt.Errorf("%w: %s failed %s=%s", ErrInvalidBundle, fe.Namespace(), fe.Tag(), fe.Param())
			}
			return fmt.Errorf("%w: %s is %s", ErrInvalidBundle, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}
	return nil
}

// Input converts the bundle into runner input. When the bundle carries no
// anchor, now is used. A missing moon phase or illumination is computed for
// the anchor instant.
func (b *Bundle) Input(now time.Time) (Input, error) {
	anchor := now
	if b.AnchorNow != "" {
		t, err := timeutil.Parse(b.AnchorNow)
		if err != nil {
			return Input{}, fmt.Errorf("%w: anchorNow %q", ErrInvalidBundle, b.AnchorNow)
		}
		anchor = t
	}

	mode := models.ModeCarpfishing
	if b.Mode != "" {
		mode = models.FishingMode(b.Mode)
	}

	in := Input{
		Latitude:  *b.Latitude,
		Longitude: *b.Longitude,
		Species:   models.ParseSpecies(b.Species),
		Mode:      mode,
		AnchorNow: anchor,
		Weather:   make([]models.WeatherData, len(b.Weather)),
		Astro: models.AstroData{
			Sunrise:          b.Astro.Sunrise,
			Sunset:           b.Astro.Sunset,
			MoonIllumination: nullFloat(b.Astro.MoonIllumination),
		},
	}
	for i, h := range b.Weather {
		in.Weather[i] = h.WeatherData()
	}

	if b.Astro.MoonPhase != nil {
		in.Astro.MoonPhase = *b.Astro.MoonPhase
	} else {
		in.Astro.MoonPhase = scoring.MoonPhaseFraction(anchor)
	}
	if !in.Astro.MoonIllumination.Valid {
		in.Astro.MoonIllumination = sql.NullFloat64{Float64: scoring.MoonIllumination(anchor), Valid: true}
	}

	if b.Hydro != nil {
		in.Hydro = &models.HydroData{
			WaterLevel: nullFloat(b.Hydro.WaterLevel),
			WaterFlow:  nullFloat(b.Hydro.WaterFlow),
			WaterTemp:  nullFloat(b.Hydro.WaterTemp),
		}
	}
	if b.Marine != nil {
		in.Marine = &models.MarineData{WaveHeight: *b.Marine.WaveHeight}
	}
	return in, nil
}

// WeatherData converts the wire hour into the scoring model.
func (h WeatherHour) WeatherData() models.WeatherData {
	w := models.WeatherData{
		Time:                     h.Time,
		Temperature:              *h.Temperature,
		Humidity:                 *h.Humidity,
		Pressure:                 *h.Pressure,
		WindSpeed:                *h.WindSpeed,
		WindDirection:            nullFloat(h.WindDirection),
		GustSpeed:                nullFloat(h.GustSpeed),
		Precipitation:            *h.Precipitation,
		PrecipitationProbability: nullFloat(h.PrecipitationProbability),
		CloudCover:               *h.CloudCover,
		CloudCoverLow:            nullFloat(h.CloudCoverLow),
		CloudCoverMid:            nullFloat(h.CloudCoverMid),
		CloudCoverHigh:           nullFloat(h.CloudCoverHigh),
		ShortwaveRadiation:       nullFloat(h.ShortwaveRadiation),
		UVIndex:                  nullFloat(h.UVIndex),
		DewPoint:                 nullFloat(h.DewPoint),
		Visibility:               nullFloat(h.Visibility),
	}
	if h.IsDay != nil {
		w.IsDay = sql.NullBool{Bool: *h.IsDay, Valid: true}
	}
	return w
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
