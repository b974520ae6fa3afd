package scoring

import (
	"database/sql"
	"math"
)

// membership maps a raw feature value to a desirability in [0,1].
type membership func(float64) float64

type weight struct {
	feature feature
	weight  int
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return clamp(x, 0, 1)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func value(v sql.NullFloat64) (float64, bool) {
	if !v.Valid || !finite(v.Float64) {
		return 0, false
	}
	return v.Float64, true
}

func some(x float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: x, Valid: true}
}

// tri is a triangular membership rising from a to a peak at b and falling to c.
func tri(x, a, b, c float64) float64 {
	if x <= a || x >= c {
		return 0
	}
	if x == b {
		return 1
	}
	if x < b {
		return (x - a) / (b - a)
	}
	return (c - x) / (c - b)
}

// weightedNorm01 averages the memberships of the available features using
// the integer weights. Absent and non-finite features drop out of both sums;
// if nothing is left the result is a neutral 0.5.
func weightedNorm01(weights []weight, features map[feature]sql.NullFloat64, fns map[feature]membership) float64 {
	var sumW, sum float64
	for _, w := range weights {
		raw, ok := value(features[w.feature])
		if !ok {
			continue
		}
		fn, ok := fns[w.feature]
		if !ok {
			continue
		}
		sumW += float64(w.weight)
		sum += float64(w.weight) * clamp01(fn(raw))
	}
	if sumW <= 0 {
		return 0.5
	}
	return sum / sumW
}

// roundInt rounds half up, matching how scores have always been rounded.
func roundInt(x float64) int {
	return int(math.Floor(x + 0.5))
}

func round2(x float64) float64 {
	return math.Floor(x*100+0.5) / 100
}
