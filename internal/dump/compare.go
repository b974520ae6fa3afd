package dump

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"

	"github.com/lox/carpcast/internal/timeutil"
)

// Tolerances maps a compared field name to the largest absolute difference
// still treated as equal.
type Tolerances map[string]float64

func DefaultTolerances() Tolerances {
	return Tolerances{
		"temperature":         0.5,
		"pressure":            1.0,
		"humidity":            1.0,
		"windSpeed":           0.5,
		"precipitation":       0.1,
		"deltaPressure1h":     1.0,
		"deltaPressure3hAvg":  1.0,
		"deltaTemp1h":         0.5,
		"rainPrev6h":          0.1,
		"rainSum24h":          0.1,
		"windStability3h":     0.05,
		"waterTempForScoring": 0.2,
		"confidence":          0.01,
	}
}

// LoadTolerances reads a flat TOML table of overrides (for example
// `temperature = 0.3`) on top of the defaults. Unknown keys are rejected.
func LoadTolerances(path string) (Tolerances, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dump: read tolerances: %w", err)
	}
	var overrides map[string]float64
	if err := toml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("dump: parse tolerances: %w", err)
	}

	tol := DefaultTolerances()
	for k, v := range overrides {
		if _, ok := tol[k]; !ok {
			return nil, fmt.Errorf("dump: unknown tolerance %q", k)
		}
		if v < 0 || math.IsNaN(v) {
			return nil, fmt.Errorf("dump: tolerance %q must be non-negative", k)
		}
		tol[k] = v
	}
	return tol, nil
}

func (t Tolerances) get(field string) float64 {
	if v, ok := t[field]; ok {
		return v
	}
	return 0.1
}

// Difference is one field that disagrees between two entries.
type Difference struct {
	Field     string
	A, B      *float64
	Tolerance float64
}

func (d Difference) String() string {
	return fmt.Sprintf("%s: %s vs %s (tol %g)", d.Field, fmtValue(d.A), fmtValue(d.B), d.Tolerance)
}

func fmtValue(v *float64) string {
	if v == nil {
		return "null"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// Mismatch is an entry of A that is either missing from B or differs.
type Mismatch struct {
	Time        string
	Missing     bool
	Differences []Difference
}

type Report struct {
	Compared  int
	Matched   int
	Differing int
	OnlyInA   int
	OnlyInB   int
	// Mismatches holds every mismatch in the order of A; the first is the
	// first difference found.
	Mismatches []Mismatch
	// UnmatchedB lists times of B entries no entry of A aligned with.
	UnmatchedB []string
}

func (r Report) First() (Mismatch, bool) {
	if len(r.Mismatches) == 0 {
		return Mismatch{}, false
	}
	return r.Mismatches[0], true
}

func (r Report) Equal() bool {
	return len(r.Mismatches) == 0 && r.OnlyInB == 0
}

// alignKey identifies an entry by its instant, or by the raw time string
// when it cannot be parsed.
func alignKey(s string) string {
	if ms, err := timeutil.ParseMs(s); err == nil {
		return strconv.FormatInt(ms/1000, 10)
	}
	return "raw:" + s
}

// Compare aligns b to a by time and reports field differences beyond tol.
func Compare(a, b []Entry, tol Tolerances) Report {
	if tol == nil {
		tol = DefaultTolerances()
	}

	index := make(map[string]int, len(b))
	for i, e := range b {
		k := alignKey(e.Time)
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}

	var r Report
	used := make(map[int]bool, len(b))
	for _, ea := range a {
		r.Compared++
		j, ok := index[alignKey(ea.Time)]
		if !ok {
			r.OnlyInA++
			r.Mismatches = append(r.Mismatches, Mismatch{Time: ea.Time, Missing: true})
			continue
		}
		used[j] = true

		diffs := compareEntries(ea, b[j], tol)
		if len(diffs) == 0 {
			r.Matched++
			continue
		}
		r.Differing++
		r.Mismatches = append(r.Mismatches, Mismatch{Time: ea.Time, Differences: diffs})
	}

	for i, e := range b {
		if !used[i] {
			r.OnlyInB++
			r.UnmatchedB = append(r.UnmatchedB, e.Time)
		}
	}
	return r
}

type field struct {
	name string
	a, b *float64
}

func compareEntries(a, b Entry, tol Tolerances) []Difference {
	fields := []field{
		{"temperature", a.Weather.Temperature, b.Weather.Temperature},
		{"pressure", a.Weather.Pressure, b.Weather.Pressure},
		{"humidity", a.Weather.Humidity, b.Weather.Humidity},
		{"windSpeed", a.Weather.WindSpeed, b.Weather.WindSpeed},
		{"precipitation", a.Weather.Precipitation, b.Weather.Precipitation},
		{"deltaPressure1h", a.Derived.DeltaPressure1h, b.Derived.DeltaPressure1h},
		{"deltaPressure3hAvg", a.Derived.DeltaPressure3hAvg, b.Derived.DeltaPressure3hAvg},
		{"deltaTemp1h", a.Derived.DeltaTemp1h, b.Derived.DeltaTemp1h},
		{"rainPrev6h", a.Derived.RainPrev6h, b.Derived.RainPrev6h},
		{"rainSum24h", a.Derived.RainSum24h, b.Derived.RainSum24h},
		{"windStability3h", a.Derived.WindStability3h, b.Derived.WindStability3h},
		{"waterTempForScoring", a.WaterTempForScoring, b.WaterTempForScoring},
		{"overall", a.Overall, b.Overall},
		{"confidence", a.Confidence, b.Confidence},
	}

	var diffs []Difference
	for _, f := range fields {
		var t float64
		if f.name != "overall" {
			t = tol.get(f.name)
		}
		if !approxEqual(f.a, f.b, t) {
			diffs = append(diffs, Difference{Field: f.name, A: f.a, B: f.b, Tolerance: t})
		}
	}
	return diffs
}

func approxEqual(a, b *float64, tol float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	x, y := *a, *b
	if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
		return x == y
	}
	return math.Abs(x-y) <= tol
}

// WriteText writes a plain-text report: a summary line, the first
// mismatch, then one line per compared entry problem.
func (r Report) WriteText(w io.Writer) error {
	p := &errWriter{w: w}
	p.printf("Compared %d entries: %d matched, %d differing, %d only in A, %d only in B.\n",
		r.Compared, r.Matched, r.Differing, r.OnlyInA, r.OnlyInB)

	if first, ok := r.First(); ok {
		p.printf("\nFirst mismatch at %s:\n", first.Time)
		writeMismatch(p, first)
	}

	if len(r.Mismatches) > 0 || len(r.UnmatchedB) > 0 {
		p.printf("\nAll mismatches:\n")
	}
	for _, m := range r.Mismatches {
		p.printf("%s\n", m.Time)
		writeMismatch(p, m)
	}
	for _, t := range r.UnmatchedB {
		p.printf("%s\n  only in B\n", t)
	}
	return p.err
}

func writeMismatch(p *errWriter, m Mismatch) {
	if m.Missing {
		p.printf("  no matching entry in B\n")
		return
	}
	for _, d := range m.Differences {
		p.printf("  %s\n", d)
	}
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
