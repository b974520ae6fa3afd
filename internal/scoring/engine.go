package scoring

import (
	"log/slog"

	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/timeutil"
)

const (
	baseWeightMeteo  = 0.4
	baseWeightAstro  = 0.3
	baseWeightHydro  = 0.2
	baseWeightMarine = 0.1

	maxReasons = 8
)

// CalculateArgs is the input to a single-hour score. Hydro, Marine and
// Context are optional.
type CalculateArgs struct {
	Weather models.WeatherData
	Astro   models.AstroData
	Hydro   *models.HydroData
	Marine  *models.MarineData
	Mode    models.FishingMode
	Species models.FishSpecies
	Context *models.ScoringContext
}

// Engine scores single hours. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Calculate produces the activity score for one hour.
func (e *Engine) Calculate(args CalculateArgs) (models.ActivityScore, error) {
	species := NormalizeSpeciesForMode(args.Species, args.Mode)
	w := args.Weather

	var (
		nowMs   int64
		lat     float64
		derived *models.DerivedFeatures
		ctx     meteoContext
	)
	if args.Context != nil {
		nowMs = args.Context.NowMs
		lat = args.Context.Latitude
		derived = args.Context.Derived
		ctx = meteoContext{
			anchorNowMs: args.Context.AnchorNowMs,
			waterTemp:   args.Context.WaterTemp,
		}
	} else {
		ms, err := timeutil.ParseMs(w.Time)
		if err != nil {
			return models.ActivityScore{}, &ParseError{Field: "time", Value: w.Time}
		}
		nowMs = ms
	}
	ctx.nowMs = nowMs
	ctx.astro = args.Astro

	var reasons reasonList

	meteo, meteoModel := meteoScore(w, derived, ctx, species, &reasons)
	astro, err := astroScore(args.Astro, nowMs, species, &reasons)
	if err != nil {
		return models.ActivityScore{}, err
	}

	var hydro, marine *float64
	if args.Hydro != nil {
		v := hydroScore(*args.Hydro, &reasons)
		hydro = &v
	}
	if args.Marine != nil {
		v := marineScore(*args.Marine, &reasons)
		marine = &v
	}

	weights := renormalizedWeights(hydro != nil, marine != nil)
	combined := weights.Meteo*meteo + weights.Astro*astro
	if hydro != nil {
		combined += weights.Hydro * *hydro
	}
	if marine != nil {
		combined += weights.Marine * *marine
	}

	tempProxy := w.Temperature
	wt, hasWaterTemp := value(ctx.waterTemp)
	if hasWaterTemp {
		tempProxy = wt
	}

	night, err := nightFactor(nowMs, args.Astro, species)
	if err != nil {
		return models.ActivityScore{}, err
	}
	bio := models.BioMultipliers{
		SeasonFactor: seasonFactor(nowMs, lat, species),
		SpawnPenalty: spawnPenalty(nowMs, lat, tempProxy, species),
		NightFactor:  night,
		MoonFactor:   1,
	}
	if species != models.SpeciesGeneral {
		bio.MoonFactor = moonFactor(args.Astro.MoonPhase)
	}

	total := clamp(combined*bio.SeasonFactor*bio.SpawnPenalty*bio.NightFactor*bio.MoonFactor, 0, 100)
	confidence := computeConfidence(args.Hydro != nil, args.Marine != nil, derived, hasWaterTemp)

	moon := 50.0
	if v, ok := value(args.Astro.MoonIllumination); ok {
		moon = v
	}
	hydroFactor := 0
	if hydro != nil {
		hydroFactor = roundInt(*hydro)
	}

	e.logger.Debug("scored hour",
		"time", timeutil.FormatMs(nowMs),
		"species", string(species),
		"meteo", meteo,
		"astro", astro,
		"combined", combined,
		"season", bio.SeasonFactor,
		"spawn", bio.SpawnPenalty,
		"night", bio.NightFactor,
		"moon", bio.MoonFactor,
		"total", total,
		"confidence", confidence,
	)

	return models.ActivityScore{
		Overall: roundInt(total),
		Factors: models.Factors{
			Weather:   roundInt(meteo),
			Astronomy: roundInt(astro),
			Pressure:  w.Pressure,
			Wind:      w.WindSpeed,
			Moon:      moon,
			Hydro:     hydroFactor,
		},
		Reasons:        reasons.unique(maxReasons),
		BestWindows:    []models.BestWindow{},
		Recommendation: RecommendationFor(total),
		Confidence:     confidence,
		Breakdown: models.ScoreBreakdown{
			Subscores: models.Subscores{
				Meteo:  roundInt(meteo),
				Astro:  roundInt(astro),
				Hydro:  roundedPtr(hydro),
				Marine: roundedPtr(marine),
			},
			MeteoModel:     meteoModel,
			WeightsUsed:    weights,
			BioMultipliers: bio,
		},
	}, nil
}

// NormalizeSpeciesForMode falls back to the general model when a species
// does not belong to the fishing mode.
func NormalizeSpeciesForMode(species models.FishSpecies, mode models.FishingMode) models.FishSpecies {
	switch species {
	case models.SpeciesBass, models.SpeciesPike, models.SpeciesCatfish:
		if mode == models.ModeCarpfishing {
			return models.SpeciesGeneral
		}
	case models.SpeciesCarp, models.SpeciesBarbel:
		if mode == models.ModePredator {
			return models.SpeciesGeneral
		}
	case models.SpeciesGeneral:
	default:
		return models.SpeciesGeneral
	}
	return species
}

// renormalizedWeights spreads the base weights over the subscores that are
// present so that they sum to 1.
func renormalizedWeights(hasHydro, hasMarine bool) models.Weights {
	hydro, marine := 0.0, 0.0
	if hasHydro {
		hydro = baseWeightHydro
	}
	if hasMarine {
		marine = baseWeightMarine
	}
	sum := baseWeightMeteo + baseWeightAstro + hydro + marine
	return models.Weights{
		Meteo:  baseWeightMeteo / sum,
		Astro:  baseWeightAstro / sum,
		Hydro:  hydro / sum,
		Marine: marine / sum,
	}
}

func computeConfidence(hasHydro, hasMarine bool, derived *models.DerivedFeatures, hasWaterTemp bool) float64 {
	c := 0.65
	if hasHydro {
		c += 0.1
	}
	if hasMarine {
		c += 0.1
	}
	if derived != nil && (derived.DeltaPressure3hAvg.Valid || derived.RainPrev6h.Valid) {
		c += 0.1
	}
	if hasWaterTemp {
		c += 0.05
	}
	return min(1, c)
}

// RecommendationFor maps an unrounded overall score to its tier.
func RecommendationFor(score float64) models.Recommendation {
	switch {
	case score >= 80:
		return models.RecommendationExcellent
	case score >= 60:
		return models.RecommendationGood
	case score >= 40:
		return models.RecommendationRegular
	default:
		return models.RecommendationPoor
	}
}

func roundedPtr(v *float64) *int {
	if v == nil {
		return nil
	}
	r := roundInt(*v)
	return &r
}
