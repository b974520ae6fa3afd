package models

import (
	"database/sql"
	"strings"
)

type FishSpecies string

const (
	SpeciesGeneral FishSpecies = "general"
	SpeciesCarp    FishSpecies = "carp"
	SpeciesBarbel  FishSpecies = "barbel"
	SpeciesBass    FishSpecies = "bass"
	SpeciesPike    FishSpecies = "pike"
	SpeciesCatfish FishSpecies = "catfish"
)

// ParseSpecies maps a species name (English or the Spanish aliases used by
// older clients) to a FishSpecies. Unknown names map to SpeciesGeneral.
func ParseSpecies(s string) FishSpecies {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "carp", "carpa":
		return SpeciesCarp
	case "barbel", "barbo":
		return SpeciesBarbel
	case "bass", "blackbass":
		return SpeciesBass
	case "pike", "lucio":
		return SpeciesPike
	case "catfish", "siluro":
		return SpeciesCatfish
	default:
		return SpeciesGeneral
	}
}

// Label is the display name used in reason strings.
func (s FishSpecies) Label() string {
	switch s {
	case SpeciesCarp:
		return "Carp"
	case SpeciesBarbel:
		return "Barbel"
	case SpeciesBass:
		return "Black bass"
	case SpeciesPike:
		return "Pike"
	case SpeciesCatfish:
		return "Catfish"
	default:
		return "General"
	}
}

type FishingMode string

const (
	ModeCarpfishing FishingMode = "carpfishing"
	ModePredator    FishingMode = "predator"
)

// WeatherData is one hourly observation or forecast step.
type WeatherData struct {
	Time                     string  // ISO-8601
	Temperature              float64 // °C
	Humidity                 float64 // %
	Pressure                 float64 // hPa
	WindSpeed                float64 // km/h
	WindDirection            sql.NullFloat64
	GustSpeed                sql.NullFloat64 // km/h
	Precipitation            float64         // mm
	PrecipitationProbability sql.NullFloat64 // %
	CloudCover               float64         // %
	CloudCoverLow            sql.NullFloat64
	CloudCoverMid            sql.NullFloat64
	CloudCoverHigh           sql.NullFloat64
	ShortwaveRadiation       sql.NullFloat64 // W/m²
	UVIndex                  sql.NullFloat64
	IsDay                    sql.NullBool
	DewPoint                 sql.NullFloat64 // °C
	Visibility               sql.NullFloat64 // m
}

type AstroData struct {
	Sunrise          string
	Sunset           string
	MoonIllumination sql.NullFloat64 // 0..100
	MoonPhase        float64         // 0 new, 0.5 full, 1 new
}

type HydroData struct {
	WaterLevel sql.NullFloat64
	WaterFlow  sql.NullFloat64
	WaterTemp  sql.NullFloat64
}

type MarineData struct {
	WaveHeight float64 // m
}

// DerivedFeatures are trend features computed from the hourly series around
// one index. Fields are invalid when the series has too little history.
type DerivedFeatures struct {
	DeltaPressure1h    sql.NullFloat64
	DeltaPressure3hAvg sql.NullFloat64
	DeltaTemp1h        sql.NullFloat64
	RainPrev6h         sql.NullFloat64
	RainSum24h         sql.NullFloat64
	WindStability3h    sql.NullFloat64
}

type ScoringContext struct {
	NowMs       int64
	AnchorNowMs sql.NullInt64 // the real present when NowMs is a future grid point
	Latitude    float64
	Derived     *DerivedFeatures
	WaterTemp   sql.NullFloat64
}

// Mix is the immediate (W) versus contextual (C) weight pair.
type Mix struct {
	W float64 `json:"w"`
	C float64 `json:"c"`
}

// MeteoModel records how the species meteo subscore was blended.
type MeteoModel struct {
	WNorm float64 `json:"wNorm"`
	CNorm float64 `json:"cNorm"`
	Mix   Mix     `json:"mix"`
}

type Recommendation string

const (
	RecommendationExcellent Recommendation = "excellent"
	RecommendationGood      Recommendation = "good"
	RecommendationRegular   Recommendation = "regular"
	RecommendationPoor      Recommendation = "poor"
	RecommendationUnknown   Recommendation = "unknown"
)

type ActivityScore struct {
	Overall        int            `json:"overall"`
	Factors        Factors        `json:"factors"`
	Reasons        []string       `json:"reasons"`
	BestWindows    []BestWindow   `json:"bestWindows"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
}

type Factors struct {
	Weather   int     `json:"weather"`
	Astronomy int     `json:"astronomy"`
	Pressure  float64 `json:"pressure"`
	Wind      float64 `json:"wind"`
	Moon      float64 `json:"moon"`
	Hydro     int     `json:"hydro"`
}

type ScoreBreakdown struct {
	Subscores      Subscores      `json:"subscores"`
	MeteoModel     *MeteoModel    `json:"meteoModel"`
	WeightsUsed    Weights        `json:"weightsUsed"`
	BioMultipliers BioMultipliers `json:"bioMultipliers"`
}

type Subscores struct {
	Meteo  int  `json:"meteo"`
	Astro  int  `json:"astro"`
	Hydro  *int `json:"hydro"`
	Marine *int `json:"marine"`
}

type Weights struct {
	Meteo  float64 `json:"meteo"`
	Astro  float64 `json:"astro"`
	Hydro  float64 `json:"hydro"`
	Marine float64 `json:"marine"`
}

type BioMultipliers struct {
	SeasonFactor float64 `json:"seasonFactor"`
	SpawnPenalty float64 `json:"spawnPenalty"`
	NightFactor  float64 `json:"nightFactor"`
	MoonFactor   float64 `json:"moonFactor"`
}

type BestWindow struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}
