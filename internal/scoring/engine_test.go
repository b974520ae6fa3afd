package scoring

import (
	"database/sql"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/carpcast/internal/models"
)

var noon = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func testAstro() models.AstroData {
	return models.AstroData{
		Sunrise:   "2026-10-15T06:00:00Z",
		Sunset:    "2026-10-15T18:00:00Z",
		MoonPhase: 0.5,
	}
}

func testWeather(at time.Time) models.WeatherData {
	return models.WeatherData{
		Time:          at.Format(time.RFC3339),
		Temperature:   20,
		Humidity:      70,
		Pressure:      1012,
		WindSpeed:     8,
		Precipitation: 0,
		CloudCover:    50,
	}
}

func favourableTrend() *models.DerivedFeatures {
	return &models.DerivedFeatures{
		DeltaPressure1h:    some(-1),
		DeltaPressure3hAvg: some(-0.6),
		DeltaTemp1h:        some(0),
		RainPrev6h:         some(1),
		RainSum24h:         some(3),
		WindStability3h:    some(0.9),
	}
}

func TestCalculate_CarpFavourable(t *testing.T) {
	e := NewEngine(nil)
	score, err := e.Calculate(CalculateArgs{
		Weather: testWeather(noon),
		Astro:   testAstro(),
		Mode:    models.ModeCarpfishing,
		Species: models.SpeciesCarp,
		Context: &models.ScoringContext{
			NowMs:       noon.UnixMilli(),
			AnchorNowMs: sql.NullInt64{Int64: noon.UnixMilli(), Valid: true},
			Latitude:    40,
			Derived:     favourableTrend(),
		},
	})
	require.NoError(t, err)

	assert.Greater(t, score.Breakdown.Subscores.Meteo, 70)
	assert.Equal(t, 1.06, score.Breakdown.BioMultipliers.MoonFactor)
	assert.Equal(t, 0.95, score.Breakdown.BioMultipliers.SeasonFactor)
	assert.Equal(t, 1.0, score.Breakdown.BioMultipliers.SpawnPenalty)
	assert.Equal(t, 1.0, score.Breakdown.BioMultipliers.NightFactor)
	assert.GreaterOrEqual(t, score.Overall, 60)
	assert.LessOrEqual(t, score.Overall, 85)
	assert.Equal(t, models.RecommendationGood, score.Recommendation)

	require.NotNil(t, score.Breakdown.MeteoModel)
	assert.Equal(t, models.Mix{W: 0.65, C: 0.35}, score.Breakdown.MeteoModel.Mix)
	assert.InDelta(t, 0.7930, score.Breakdown.MeteoModel.WNorm, 0.001)
	assert.InDelta(t, 0.8696, score.Breakdown.MeteoModel.CNorm, 0.001)

	assert.Equal(t, []string{
		"Species: Carp",
		"Favorable current conditions (W)",
		"Favorable trend (C)",
	}, score.Reasons)
	assert.Empty(t, score.BestWindows)
	assert.Equal(t, 45, score.Factors.Astronomy)
	assert.Equal(t, 50.0, score.Factors.Moon)
	assert.InDelta(t, 0.75, score.Confidence, 1e-9)
	assert.Nil(t, score.Breakdown.Subscores.Hydro)
	assert.Nil(t, score.Breakdown.Subscores.Marine)
}

func TestCalculate_IncompatibleSpeciesUsesGeneralModel(t *testing.T) {
	e := NewEngine(nil)
	score, err := e.Calculate(CalculateArgs{
		Weather: testWeather(noon),
		Astro:   testAstro(),
		Mode:    models.ModeCarpfishing,
		Species: models.SpeciesPike,
		Context: &models.ScoringContext{NowMs: noon.UnixMilli(), Latitude: 40},
	})
	require.NoError(t, err)

	assert.Nil(t, score.Breakdown.MeteoModel)
	assert.Contains(t, score.Reasons, "Favorable pressure (1012.0 hPa)")
	assert.NotContains(t, score.Reasons, "Species: Pike")
	assert.Equal(t, models.BioMultipliers{SeasonFactor: 1, SpawnPenalty: 1, NightFactor: 1, MoonFactor: 1}, score.Breakdown.BioMultipliers)
}

func TestCalculate_GeneralMeteoCeiling(t *testing.T) {
	w := testWeather(noon)
	w.Pressure = 1020
	w.WindSpeed = 5
	w.CloudCover = 20

	score, err := NewEngine(nil).Calculate(CalculateArgs{
		Weather: w,
		Astro:   testAstro(),
		Mode:    models.ModeCarpfishing,
		Species: models.SpeciesGeneral,
	})
	require.NoError(t, err)

	assert.Equal(t, 85, score.Breakdown.Subscores.Meteo)
	assert.Equal(t, 85, score.Factors.Weather)
	// 0.4/0.7*85 + 0.3/0.7*50
	assert.Equal(t, 70, score.Overall)
	assert.Len(t, score.Reasons, 5)
}

func TestCalculate_GeneralMeteoFloor(t *testing.T) {
	w := testWeather(noon)
	w.Pressure = 990
	w.WindSpeed = 40
	w.Precipitation = 5
	w.Temperature = 5
	w.CloudCover = 90

	score, err := NewEngine(nil).Calculate(CalculateArgs{Weather: w, Astro: testAstro(), Species: models.SpeciesGeneral})
	require.NoError(t, err)
	assert.Equal(t, 30, score.Breakdown.Subscores.Meteo)
	assert.Equal(t, []string{
		"Moderate pressure (990.0 hPa)",
		"Strong wind (40.0 km/h)",
		"Heavy precipitation",
		"Moderate temperature (5.0°C)",
		"Heavy cloud cover",
	}, score.Reasons)
}

func TestCalculate_CatfishAtNight(t *testing.T) {
	night := time.Date(2026, 10, 15, 2, 0, 0, 0, time.UTC)
	score, err := NewEngine(nil).Calculate(CalculateArgs{
		Weather: testWeather(night),
		Astro:   testAstro(),
		Mode:    models.ModePredator,
		Species: models.SpeciesCatfish,
		Context: &models.ScoringContext{NowMs: night.UnixMilli(), Latitude: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.1, score.Breakdown.BioMultipliers.NightFactor)
	assert.Equal(t, 35, score.Factors.Astronomy)
}

func TestCalculate_AllSubscores(t *testing.T) {
	hydro := &models.HydroData{
		WaterLevel: some(1.2),
		WaterFlow:  some(30),
		WaterTemp:  some(16),
	}
	marine := &models.MarineData{WaveHeight: 0.5}

	score, err := NewEngine(nil).Calculate(CalculateArgs{
		Weather: testWeather(noon),
		Astro:   testAstro(),
		Hydro:   hydro,
		Marine:  marine,
		Mode:    models.ModeCarpfishing,
		Species: models.SpeciesCarp,
		Context: &models.ScoringContext{
			NowMs:     noon.UnixMilli(),
			Derived:   favourableTrend(),
			WaterTemp: some(16),
		},
	})
	require.NoError(t, err)

	w := score.Breakdown.WeightsUsed
	assert.InDelta(t, 1.0, w.Meteo+w.Astro+w.Hydro+w.Marine, 1e-9)
	assert.InDelta(t, 0.4, w.Meteo, 1e-9)
	assert.InDelta(t, 0.1, w.Marine, 1e-9)

	require.NotNil(t, score.Breakdown.Subscores.Hydro)
	require.NotNil(t, score.Breakdown.Subscores.Marine)
	assert.Equal(t, 100, *score.Breakdown.Subscores.Hydro)
	assert.Equal(t, 50, *score.Breakdown.Subscores.Marine)
	assert.Equal(t, 100, score.Factors.Hydro)
	assert.InDelta(t, 1.0, score.Confidence, 1e-9)
	assert.LessOrEqual(t, len(score.Reasons), 8)
}

func TestCalculate_Errors(t *testing.T) {
	e := NewEngine(nil)

	w := testWeather(noon)
	w.Time = "not a time"
	_, err := e.Calculate(CalculateArgs{Weather: w, Astro: testAstro(), Species: models.SpeciesCarp, Mode: models.ModeCarpfishing})
	assert.ErrorIs(t, err, ErrInvalidTimestamp)

	astro := testAstro()
	astro.Sunset = "dusk"
	_, err = e.Calculate(CalculateArgs{
		Weather: testWeather(noon),
		Astro:   astro,
		Species: models.SpeciesCarp,
		Mode:    models.ModeCarpfishing,
		Context: &models.ScoringContext{NowMs: noon.UnixMilli()},
	})
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "sunset", perr.Field)

	// The general model parses astro too.
	_, err = e.Calculate(CalculateArgs{
		Weather: testWeather(noon),
		Astro:   astro,
		Species: models.SpeciesGeneral,
		Mode:    models.ModeCarpfishing,
		Context: &models.ScoringContext{NowMs: noon.UnixMilli()},
	})
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "sunset", perr.Field)
}

func TestCalculate_Deterministic(t *testing.T) {
	e := NewEngine(nil)
	args := CalculateArgs{
		Weather: testWeather(noon),
		Astro:   testAstro(),
		Mode:    models.ModeCarpfishing,
		Species: models.SpeciesBarbel,
		Context: &models.ScoringContext{NowMs: noon.UnixMilli(), Derived: favourableTrend()},
	}
	first, err := e.Calculate(args)
	require.NoError(t, err)
	second, err := e.Calculate(args)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCalculate_HorizonShiftsMix(t *testing.T) {
	later := noon.Add(48 * time.Hour)
	score, err := NewEngine(nil).Calculate(CalculateArgs{
		Weather: testWeather(later),
		Astro:   testAstro(),
		Mode:    models.ModeCarpfishing,
		Species: models.SpeciesCarp,
		Context: &models.ScoringContext{
			NowMs:       later.UnixMilli(),
			AnchorNowMs: sql.NullInt64{Int64: noon.UnixMilli(), Valid: true},
			Derived:     favourableTrend(),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Mix{W: 0.55, C: 0.45}, score.Breakdown.MeteoModel.Mix)
	assert.Contains(t, score.Reasons, "Forecast horizon shifts weight to trend (C)")
}

func TestNormalizeSpeciesForMode(t *testing.T) {
	tests := []struct {
		species models.FishSpecies
		mode    models.FishingMode
		want    models.FishSpecies
	}{
		{models.SpeciesCarp, models.ModeCarpfishing, models.SpeciesCarp},
		{models.SpeciesBarbel, models.ModePredator, models.SpeciesGeneral},
		{models.SpeciesPike, models.ModeCarpfishing, models.SpeciesGeneral},
		{models.SpeciesBass, models.ModePredator, models.SpeciesBass},
		{models.SpeciesCatfish, models.ModePredator, models.SpeciesCatfish},
		{models.SpeciesGeneral, models.ModePredator, models.SpeciesGeneral},
		{models.FishSpecies("trout"), models.ModePredator, models.SpeciesGeneral},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSpeciesForMode(tt.species, tt.mode), "%s/%s", tt.species, tt.mode)
	}
}

func TestRecommendationFor(t *testing.T) {
	assert.Equal(t, models.RecommendationExcellent, RecommendationFor(80))
	assert.Equal(t, models.RecommendationGood, RecommendationFor(79.99))
	assert.Equal(t, models.RecommendationGood, RecommendationFor(60))
	assert.Equal(t, models.RecommendationRegular, RecommendationFor(40))
	assert.Equal(t, models.RecommendationPoor, RecommendationFor(39.5))
}

func TestCalculate_RandomInputsStayInBounds(t *testing.T) {
	species := []models.FishSpecies{
		models.SpeciesGeneral, models.SpeciesCarp, models.SpeciesBarbel,
		models.SpeciesBass, models.SpeciesPike, models.SpeciesCatfish,
	}
	modes := []models.FishingMode{models.ModeCarpfishing, models.ModePredator}
	r := rand.New(rand.NewPCG(20261015, 20261015))
	span := func(lo, hi float64) float64 { return lo + r.Float64()*(hi-lo) }
	maybe := func(lo, hi float64) sql.NullFloat64 {
		if r.IntN(3) == 0 {
			return sql.NullFloat64{}
		}
		return some(span(lo, hi))
	}

	e := NewEngine(nil)
	for i := 0; i < 2000; i++ {
		at := noon.Add(time.Duration(r.IntN(365*24)-180*24) * time.Hour)
		args := CalculateArgs{
			Weather: models.WeatherData{
				Time:          at.Format(time.RFC3339),
				Temperature:   span(-15, 40),
				Humidity:      span(0, 100),
				Pressure:      span(960, 1050),
				WindSpeed:     span(0, 80),
				WindDirection: maybe(0, 360),
				GustSpeed:     maybe(0, 120),
				Precipitation: span(0, 20),
				CloudCover:    span(0, 100),
				UVIndex:       maybe(0, 11),
			},
			Astro: models.AstroData{
				Sunrise:          at.Truncate(24 * time.Hour).Add(6 * time.Hour).Format(time.RFC3339),
				Sunset:           at.Truncate(24 * time.Hour).Add(19 * time.Hour).Format(time.RFC3339),
				MoonIllumination: maybe(0, 100),
				MoonPhase:        r.Float64(),
			},
			Mode:    modes[r.IntN(len(modes))],
			Species: species[r.IntN(len(species))],
			Context: &models.ScoringContext{
				NowMs:     at.UnixMilli(),
				Latitude:  span(-60, 60),
				WaterTemp: maybe(0, 30),
			},
		}
		if r.IntN(2) == 0 {
			args.Context.Derived = &models.DerivedFeatures{
				DeltaPressure1h:    maybe(-5, 5),
				DeltaPressure3hAvg: maybe(-3, 3),
				DeltaTemp1h:        maybe(-4, 4),
				RainPrev6h:         maybe(0, 30),
				RainSum24h:         maybe(0, 80),
				WindStability3h:    maybe(0, 1),
			}
		}
		if r.IntN(2) == 0 {
			args.Hydro = &models.HydroData{
				WaterLevel: maybe(0, 5),
				WaterFlow:  maybe(0, 500),
				WaterTemp:  maybe(0, 30),
			}
		}
		if r.IntN(2) == 0 {
			args.Marine = &models.MarineData{WaveHeight: span(0, 6)}
		}

		score, err := e.Calculate(args)
		require.NoError(t, err, "iteration %d", i)

		assert.GreaterOrEqual(t, score.Overall, 0, "iteration %d", i)
		assert.LessOrEqual(t, score.Overall, 100, "iteration %d", i)
		assert.GreaterOrEqual(t, score.Confidence, 0.0, "iteration %d", i)
		assert.LessOrEqual(t, score.Confidence, 1.0, "iteration %d", i)

		wu := score.Breakdown.WeightsUsed
		assert.InDelta(t, 1.0, wu.Meteo+wu.Astro+wu.Hydro+wu.Marine, 1e-9, "iteration %d", i)
		assert.Equal(t, args.Hydro != nil, score.Breakdown.Subscores.Hydro != nil, "iteration %d", i)
		assert.Equal(t, args.Marine != nil, score.Breakdown.Subscores.Marine != nil, "iteration %d", i)
	}
}
