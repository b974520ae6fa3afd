package scoring

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/timeutil"
)

const (
	dawnWindowMinutes = 90
	wcFavorable       = 0.65
)

type meteoContext struct {
	nowMs       int64
	anchorNowMs sql.NullInt64
	astro       models.AstroData
	waterTemp   sql.NullFloat64
}

type reasonList []string

func (r *reasonList) add(format string, args ...any) {
	*r = append(*r, fmt.Sprintf(format, args...))
}

// unique returns the first n distinct reasons in insertion order.
func (r reasonList) unique(n int) []string {
	seen := make(map[string]bool, len(r))
	out := make([]string, 0, min(n, len(r)))
	for _, s := range r {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

// meteoScore returns the meteo subscore in [0,100] and, for species with a
// W/C model, how it was blended.
func meteoScore(w models.WeatherData, derived *models.DerivedFeatures, ctx meteoContext, species models.FishSpecies, reasons *reasonList) (float64, *models.MeteoModel) {
	cfg, ok := lookupSpecies(species)
	if !ok {
		return legacyWeatherScore(w, reasons), nil
	}

	t := w.Temperature
	if wt, ok := value(ctx.waterTemp); ok {
		t = wt
	}

	dewPoint, ok := value(w.DewPoint)
	if !ok {
		dewPoint, ok = estimateDewPoint(w.Temperature, w.Humidity)
	}
	var tdSpread sql.NullFloat64
	if ok && finite(t) {
		tdSpread = some(t - dewPoint)
	}

	var gustRatio sql.NullFloat64
	if gust, ok := value(w.GustSpeed); ok && finite(w.WindSpeed) {
		gustRatio = some(gust / math.Max(5, w.WindSpeed))
	}

	var dPressure3h sql.NullFloat64
	if derived != nil {
		if avg, ok := value(derived.DeltaPressure3hAvg); ok {
			dPressure3h = some(avg * 3)
		} else {
			dPressure3h = derived.DeltaPressure1h
		}
	}

	wFeatures := map[feature]sql.NullFloat64{
		featWind:      some(w.WindSpeed),
		featGustRatio: gustRatio,
		featCloud:     some(w.CloudCover),
		featLayers:    some(cloudLayersNorm(w.CloudCoverLow, w.CloudCoverMid, w.CloudCoverHigh)),
		featPrecip:    some(w.Precipitation),
		featPoP:       w.PrecipitationProbability,
		featPressure:  some(w.Pressure),
		featPTrend3h:  dPressure3h,
		featTemp:      some(t),
		featRH:        some(w.Humidity),
		featTdSpread:  tdSpread,
		featRadiation: some(radiationNorm(w.ShortwaveRadiation, w.UVIndex, w.IsDay)),
		featDawn:      some(sunWindowNorm(ctx.nowMs, ctx.astro, dawnWindowMinutes)),
	}

	cFeatures := map[feature]sql.NullFloat64{}
	if derived != nil {
		cFeatures[featDP] = derived.DeltaPressure1h
		cFeatures[featDPMean] = derived.DeltaPressure3hAvg
		cFeatures[featDT] = derived.DeltaTemp1h
		cFeatures[featRain] = derived.RainPrev6h
		cFeatures[featRainDays] = derived.RainSum24h
		cFeatures[featWStab] = derived.WindStability3h
	}

	wNorm := weightedNorm01(cfg.w, wFeatures, cfg.f)
	cNorm := weightedNorm01(cfg.c, cFeatures, cfg.f)

	horizon := horizonHours(ctx.nowMs, ctx.anchorNowMs)
	mix := cfg.mixForHorizon(horizon)
	score := clamp01(mix.W*wNorm+mix.C*cNorm) * 100

	reasons.add("Species: %s", species.Label())
	if wNorm >= wcFavorable {
		reasons.add("Favorable current conditions (W)")
	}
	if cNorm >= wcFavorable {
		reasons.add("Favorable trend (C)")
	}
	if horizon > 6 && mix.C > cfg.meteoMix.C {
		reasons.add("Forecast horizon shifts weight to trend (C)")
	}

	return score, &models.MeteoModel{WNorm: wNorm, CNorm: cNorm, Mix: mix}
}

// horizonHours is how far ahead of the anchor the scored instant lies. Past
// instants and missing anchors count as zero.
func horizonHours(nowMs int64, anchor sql.NullInt64) float64 {
	if !anchor.Valid {
		return 0
	}
	return math.Max(0, float64(nowMs-anchor.Int64)/3_600_000)
}

// estimateDewPoint uses the Magnus approximation.
func estimateDewPoint(tempC, rhPct float64) (float64, bool) {
	if !finite(tempC) || !finite(rhPct) {
		return 0, false
	}
	const a, b = 17.62, 243.12
	rh := clamp(rhPct, 1, 100) / 100
	gamma := (a*tempC)/(b+tempC) + math.Log(rh)
	return (b * gamma) / (a - gamma), true
}

func cloudLayersNorm(low, mid, high sql.NullFloat64) float64 {
	layer := func(v sql.NullFloat64, left, peak, right, fallback float64) float64 {
		x, ok := value(v)
		if !ok {
			return fallback
		}
		return tri(x, left, peak, right)
	}
	return (layer(low, 10, 50, 90, 0.5) +
		layer(mid, 10, 50, 90, 0.5) +
		layer(high, 5, 40, 95, 0.4)) / 3
}

// radiationNorm prefers the UV index, then shortwave radiation. At night it
// is neutral.
func radiationNorm(sw, uv sql.NullFloat64, isDay sql.NullBool) float64 {
	if isDay.Valid && !isDay.Bool {
		return 0.5
	}
	if u, ok := value(uv); ok {
		switch {
		case u <= 2:
			return 0.9
		case u <= 5:
			return 0.7
		case u <= 7:
			return 0.5
		default:
			return 0.3
		}
	}
	s, ok := value(sw)
	if !ok {
		return 0.6
	}
	switch {
	case s <= 200:
		return 0.9
	case s <= 500:
		return 0.7
	case s <= 800:
		return 0.5
	default:
		return 0.35
	}
}

// sunWindowNorm is 1 within mins of sunrise or sunset. Unparsable sun times
// are ignored here.
func sunWindowNorm(nowMs int64, astro models.AstroData, mins int) float64 {
	window := int64(mins) * 60_000
	for _, s := range []string{astro.Sunrise, astro.Sunset} {
		ms, err := timeutil.ParseMs(s)
		if err == nil && absInt64(nowMs-ms) <= window {
			return 1
		}
	}
	return 0
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// legacyWeatherScore is the additive bucket score used for the general
// species. Its ceiling is 85, not 100.
func legacyWeatherScore(w models.WeatherData, reasons *reasonList) float64 {
	var score float64

	if w.Pressure >= 1010 && w.Pressure <= 1030 {
		score += 25
		reasons.add("Favorable pressure (%.1f hPa)", w.Pressure)
	} else {
		score += 10
		reasons.add("Moderate pressure (%.1f hPa)", w.Pressure)
	}

	if w.WindSpeed <= 15 {
		score += 20
		reasons.add("Favorable wind (%.1f km/h)", w.WindSpeed)
	} else {
		score += 5
		reasons.add("Strong wind (%.1f km/h)", w.WindSpeed)
	}

	switch {
	case w.Precipitation == 0:
		score += 15
		reasons.add("No precipitation")
	case w.Precipitation < 2:
		score += 10
		reasons.add("Light precipitation")
	default:
		score += 2
		reasons.add("Heavy precipitation")
	}

	if w.Temperature >= 15 && w.Temperature <= 25 {
		score += 15
		reasons.add("Optimal temperature (%.1f°C)", w.Temperature)
	} else {
		score += 8
		reasons.add("Moderate temperature (%.1f°C)", w.Temperature)
	}

	if w.CloudCover <= 50 {
		score += 10
		reasons.add("Favorable cloud cover")
	} else {
		score += 5
		reasons.add("Heavy cloud cover")
	}

	return score
}
