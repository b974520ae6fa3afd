package scoring

import (
	"math"

	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/timeutil"
)

type seasonTable struct {
	winter, spring, summer, autumn float64
}

type spawnWindow struct {
	fromMonth, toMonth int
	minTemp, maxTemp   float64
	penalty            float64
}

// effectiveMonth shifts southern-hemisphere months by six so that seasonal
// tables can be written for the north.
func effectiveMonth(nowMs int64, lat float64) int {
	m := timeutil.MonthUTC(nowMs)
	if lat >= 0 {
		return m
	}
	return (m+6-1)%12 + 1
}

func seasonFactor(nowMs int64, lat float64, species models.FishSpecies) float64 {
	cfg, ok := lookupSpecies(species)
	if !ok {
		return 1
	}
	switch m := effectiveMonth(nowMs, lat); {
	case m == 12 || m <= 2:
		return cfg.season.winter
	case m <= 5:
		return cfg.season.spring
	case m <= 8:
		return cfg.season.summer
	default:
		return cfg.season.autumn
	}
}

// spawnPenalty dampens activity in the spawning months when the water is in
// the species' spawning band.
func spawnPenalty(nowMs int64, lat, waterTemp float64, species models.FishSpecies) float64 {
	cfg, ok := lookupSpecies(species)
	if !ok {
		return 1
	}
	s := cfg.spawn
	m := effectiveMonth(nowMs, lat)
	if m >= s.fromMonth && m <= s.toMonth && waterTemp >= s.minTemp && waterTemp <= s.maxTemp {
		return s.penalty
	}
	return 1
}

// nightFactor favours catfish outside daylight. Other species are neutral.
func nightFactor(nowMs int64, astro models.AstroData, species models.FishSpecies) (float64, error) {
	if species != models.SpeciesCatfish {
		return 1, nil
	}
	sunrise, sunset, err := sunTimes(astro)
	if err != nil {
		return 0, err
	}
	if nowMs < sunrise || nowMs > sunset {
		return 1.1, nil
	}
	return 0.7, nil
}

// moonFactor gives a small boost around new and full moon.
func moonFactor(phase float64) float64 {
	if !finite(phase) {
		return 1
	}
	p := math.Mod(math.Mod(phase, 1)+1, 1)
	dNew := math.Min(p, 1-p)
	dFull := math.Abs(p - 0.5)
	if dNew <= 0.12 || dFull <= 0.12 {
		return 1.06
	}
	return 1
}
