package scoring

import (
	"math"
	"time"
)

// LunarCycle is the mean synodic month in days.
const LunarCycle = 29.53

// referenceNewMoon is a known new moon, January 6, 2000 18:14 UTC.
var referenceNewMoon = time.Date(2000, 1, 6, 18, 14, 0, 0, time.UTC)

// MoonPhaseFraction returns the lunar phase at t as a fraction in [0,1),
// where 0 is new moon and 0.5 is full moon.
func MoonPhaseFraction(t time.Time) float64 {
	days := t.Sub(referenceNewMoon).Hours() / 24
	pos := math.Mod(days, LunarCycle)
	if pos < 0 {
		pos += LunarCycle
	}
	return pos / LunarCycle
}

// MoonIllumination returns approximate illumination percentage (0-100).
func MoonIllumination(t time.Time) float64 {
	angle := MoonPhaseFraction(t) * 2 * math.Pi
	return (1 - math.Cos(angle)) / 2 * 100
}
