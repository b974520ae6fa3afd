package scoring

import (
	"github.com/lox/carpcast/internal/models"
)

type feature string

// Immediate (W) features.
const (
	featWind      feature = "wind"
	featGustRatio feature = "gustRatio"
	featCloud     feature = "cloud"
	featLayers    feature = "layers"
	featPrecip    feature = "precip"
	featPoP       feature = "pop"
	featPressure  feature = "pressure"
	featPTrend3h  feature = "ptrend3h"
	featTemp      feature = "temp"
	featRH        feature = "rh"
	featTdSpread  feature = "tdSpread"
	featRadiation feature = "radiation"
	featDawn      feature = "dawn"
)

// Contextual (C) features.
const (
	featDP       feature = "dP"
	featDPMean   feature = "dPmean"
	featDT       feature = "dT"
	featRain     feature = "rain"
	featRainDays feature = "rainDays"
	featWStab    feature = "wstab"
)

type speciesConfig struct {
	meteoMix models.Mix
	// horizonMix holds the mix for horizons of ≤6h, ≤24h, ≤72h and beyond.
	horizonMix [4]models.Mix
	w          []weight
	c          []weight
	f          map[feature]membership
	// astroMultiplier scales the golden-hour astro subscore.
	astroMultiplier float64
	season          seasonTable
	spawn           spawnWindow
}

func immediateWeights(wind, gust, cloud, layers, precip, pop, pressure, ptrend, temp, rh, td, rad, dawn int) []weight {
	return []weight{
		{featWind, wind}, {featGustRatio, gust}, {featCloud, cloud}, {featLayers, layers},
		{featPrecip, precip}, {featPoP, pop}, {featPressure, pressure}, {featPTrend3h, ptrend},
		{featTemp, temp}, {featRH, rh}, {featTdSpread, td}, {featRadiation, rad}, {featDawn, dawn},
	}
}

func contextWeights(dP, dPmean, dT, rain, rainDays, wstab int) []weight {
	return []weight{
		{featDP, dP}, {featDPMean, dPmean}, {featDT, dT},
		{featRain, rain}, {featRainDays, rainDays}, {featWStab, wstab},
	}
}

var speciesTable = map[models.FishSpecies]speciesConfig{
	models.SpeciesCarp: {
		meteoMix:        models.Mix{W: 0.65, C: 0.35},
		horizonMix:      [4]models.Mix{{W: 0.65, C: 0.35}, {W: 0.63, C: 0.37}, {W: 0.55, C: 0.45}, {W: 0.50, C: 0.50}},
		w:               immediateWeights(11, 4, 8, 1, 10, 2, 11, 10, 9, 5, 4, 4, 3),
		c:               contextWeights(4, 4, 3, 6, 4, 2),
		f:               memberships(carpPressure, carpPressureTrend, carpTemp),
		astroMultiplier: 0.9,
		season:          seasonTable{winter: 0.8, spring: 1.0, summer: 1.1, autumn: 0.95},
		spawn:           spawnWindow{fromMonth: 5, toMonth: 7, minTemp: 18, maxTemp: 24, penalty: 0.7},
	},
	models.SpeciesBarbel: {
		meteoMix:        models.Mix{W: 0.55, C: 0.45},
		horizonMix:      [4]models.Mix{{W: 0.55, C: 0.45}, {W: 0.53, C: 0.47}, {W: 0.47, C: 0.53}, {W: 0.45, C: 0.55}},
		w:               immediateWeights(11, 4, 8, 1, 12, 2, 11, 10, 10, 5, 4, 4, 2),
		c:               contextWeights(4, 4, 3, 7, 5, 3),
		f:               memberships(genericPressure, genericPressureTrend, triTemp(12, 22, 30)),
		astroMultiplier: 0.85,
		season:          seasonTable{winter: 0.8, spring: 1.0, summer: 1.05, autumn: 0.9},
		spawn:           spawnWindow{fromMonth: 5, toMonth: 7, minTemp: 16, maxTemp: 20, penalty: 0.75},
	},
	models.SpeciesBass: {
		meteoMix:        models.Mix{W: 0.75, C: 0.25},
		horizonMix:      [4]models.Mix{{W: 0.75, C: 0.25}, {W: 0.73, C: 0.27}, {W: 0.63, C: 0.37}, {W: 0.55, C: 0.45}},
		w:               immediateWeights(10, 4, 7, 1, 6, 2, 9, 10, 12, 5, 4, 7, 6),
		c:               contextWeights(4, 4, 4, 5, 3, 2),
		f:               memberships(genericPressure, genericPressureTrend, triTemp(12, 22, 30)),
		astroMultiplier: 1.2,
		season:          seasonTable{winter: 0.75, spring: 1.0, summer: 1.1, autumn: 0.9},
		spawn:           spawnWindow{fromMonth: 4, toMonth: 6, minTemp: 16, maxTemp: 21, penalty: 0.75},
	},
	models.SpeciesPike: {
		meteoMix:        models.Mix{W: 0.60, C: 0.40},
		horizonMix:      [4]models.Mix{{W: 0.60, C: 0.40}, {W: 0.58, C: 0.42}, {W: 0.50, C: 0.50}, {W: 0.50, C: 0.50}},
		w:               immediateWeights(9, 4, 8, 1, 8, 2, 13, 12, 9, 5, 4, 3, 4),
		c:               contextWeights(5, 5, 3, 5, 4, 3),
		f:               memberships(genericPressure, genericPressureTrend, triTemp(4, 14, 22)),
		astroMultiplier: 0.8,
		season:          seasonTable{winter: 1.0, spring: 0.95, summer: 0.85, autumn: 1.1},
		spawn:           spawnWindow{fromMonth: 2, toMonth: 4, minTemp: 4, maxTemp: 10, penalty: 0.8},
	},
	models.SpeciesCatfish: {
		meteoMix:        models.Mix{W: 0.70, C: 0.30},
		horizonMix:      [4]models.Mix{{W: 0.70, C: 0.30}, {W: 0.68, C: 0.32}, {W: 0.58, C: 0.42}, {W: 0.55, C: 0.45}},
		w:               immediateWeights(9, 3, 8, 1, 9, 2, 9, 9, 13, 5, 4, 4, 2),
		c:               contextWeights(4, 4, 3, 6, 5, 2),
		f:               memberships(genericPressure, genericPressureTrend, triTemp(14, 24, 32)),
		astroMultiplier: 0.7,
		season:          seasonTable{winter: 0.75, spring: 0.95, summer: 1.1, autumn: 0.9},
		spawn:           spawnWindow{fromMonth: 5, toMonth: 7, minTemp: 20, maxTemp: 26, penalty: 0.7},
	},
}

func lookupSpecies(s models.FishSpecies) (speciesConfig, bool) {
	cfg, ok := speciesTable[s]
	return cfg, ok
}

// mixForHorizon picks the banded W/C mix for a forecast horizon in hours.
func (c speciesConfig) mixForHorizon(hours float64) models.Mix {
	switch {
	case hours <= 6:
		return c.horizonMix[0]
	case hours <= 24:
		return c.horizonMix[1]
	case hours <= 72:
		return c.horizonMix[2]
	default:
		return c.horizonMix[3]
	}
}

func memberships(pressure, ptrend, temp membership) map[feature]membership {
	return map[feature]membership{
		featWind:      func(w float64) float64 { return tri(w, 0, 10, 30) },
		featGustRatio: gustRatioMembership,
		featCloud:     cloudMembership,
		featLayers:    clamp01,
		featPrecip:    precipMembership,
		featPoP:       popMembership,
		featPressure:  pressure,
		featPTrend3h:  ptrend,
		featTemp:      temp,
		featRH:        rhMembership,
		featTdSpread:  tdSpreadMembership,
		featRadiation: clamp01,
		featDawn:      clamp01,

		featDP:       deltaPressureMembership,
		featDPMean:   deltaPressureMeanMembership,
		featDT:       deltaTempMembership,
		featRain:     rainMembership,
		featRainDays: rainDaysMembership,
		featWStab:    clamp01,
	}
}

func gustRatioMembership(r float64) float64 {
	switch {
	case r <= 1.2:
		return 1.0
	case r <= 1.5:
		return 0.7
	case r <= 2.0:
		return 0.4
	default:
		return 0.2
	}
}

func cloudMembership(cc float64) float64 {
	switch {
	case cc >= 40 && cc <= 80:
		return 1.0
	case cc >= 20 && cc < 40:
		return 0.7
	case cc > 80 && cc <= 95:
		return 0.7
	default:
		return 0.3
	}
}

func precipMembership(mm float64) float64 {
	switch {
	case mm == 0:
		return 0.7
	case mm <= 1:
		return 1.0
	case mm <= 3:
		return 0.6
	case mm <= 6:
		return 0.35
	default:
		return 0.15
	}
}

func popMembership(pop float64) float64 {
	switch {
	case pop <= 20:
		return 0.7
	case pop <= 50:
		return 0.6
	case pop <= 70:
		return 0.5
	default:
		return 0.35
	}
}

// Carp tolerate a wide low-pressure band.
func carpPressure(p float64) float64 {
	switch {
	case p <= 995:
		return 0.6
	case p <= 1002:
		return 0.9
	case p <= 1010:
		return 1.0
	case p <= 1016:
		return 0.6
	default:
		return 0.4
	}
}

func genericPressure(p float64) float64 {
	return tri(p, 995, 1008, 1015)
}

// carpPressureTrend scores the 3h pressure change; falling pressure is best.
func carpPressureTrend(d float64) float64 {
	switch {
	case d <= -3:
		return 1.0
	case d <= -1.5:
		return 0.9
	case d <= -0.5:
		return 0.8
	case d < 0.5:
		return 0.65
	case d < 1.5:
		return 0.4
	default:
		return 0.2
	}
}

func genericPressureTrend(d float64) float64 {
	switch {
	case d <= -2:
		return 0.95
	case d <= -0.5:
		return 0.8
	case d < 0.5:
		return 0.6
	case d < 2:
		return 0.4
	default:
		return 0.2
	}
}

func carpTemp(t float64) float64 {
	switch {
	case t < 8:
		return 0.1
	case t < 15:
		return 0.4
	case t < 18:
		return 0.7
	case t <= 30:
		return 1.0
	case t <= 32:
		return 0.7
	case t <= 34:
		return 0.4
	default:
		return 0.2
	}
}

func triTemp(a, b, c float64) membership {
	return func(t float64) float64 { return tri(t, a, b, c) }
}

func rhMembership(rh float64) float64 {
	switch {
	case rh >= 55 && rh <= 85:
		return 1.0
	case rh >= 40 && rh < 55, rh > 85 && rh <= 95:
		return 0.7
	default:
		return 0.4
	}
}

func tdSpreadMembership(s float64) float64 {
	switch {
	case s < 0:
		return 0.4
	case s <= 2:
		return 0.8
	case s <= 8:
		return 1.0
	case s <= 14:
		return 0.6
	default:
		return 0.3
	}
}

func deltaPressureMembership(d float64) float64 {
	switch {
	case d <= -2:
		return 0.95
	case d <= -0.5:
		return 0.8
	case d < 0.5:
		return 0.6
	case d < 2:
		return 0.4
	default:
		return 0.25
	}
}

func deltaPressureMeanMembership(d float64) float64 {
	switch {
	case d <= -1.5:
		return 0.95
	case d <= -0.5:
		return 0.8
	case d < 0.5:
		return 0.65
	case d < 1.5:
		return 0.45
	default:
		return 0.25
	}
}

func deltaTempMembership(d float64) float64 {
	switch {
	case d <= -3:
		return 0.9
	case d <= -1:
		return 0.8
	case d <= 1:
		return 0.6
	case d <= 3:
		return 0.4
	default:
		return 0.3
	}
}

// rainMembership scores rain over the previous 6h; a little rain beats none.
func rainMembership(mm float64) float64 {
	switch {
	case mm == 0:
		return 0.4
	case mm <= 2:
		return 1.0
	case mm <= 10:
		return 0.85
	case mm <= 30:
		return 0.6
	default:
		return 0.3
	}
}

func rainDaysMembership(mm float64) float64 {
	switch {
	case mm == 0:
		return 0.5
	case mm <= 5:
		return 1.0
	case mm <= 20:
		return 0.85
	case mm <= 50:
		return 0.6
	default:
		return 0.3
	}
}
