package scoring

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/lox/carpcast/internal/models"
)

const (
	DefaultWindowHours = 3
	DefaultTopN        = 3
)

// TimeScore is one hourly overall score. Score is invalid when the hour
// could not be scored.
type TimeScore struct {
	Time  string
	Score sql.NullFloat64
}

type windowCandidate struct {
	start, end int
	avg        float64
}

// FindBestWindows returns up to topN non-overlapping windows of windowHours
// consecutive points with the highest average score. Points are assumed to
// be hourly and ascending. Missing scores are left out of the average; a
// window with no scores at all is never a candidate.
func FindBestWindows(points []TimeScore, windowHours, topN int) []models.BestWindow {
	if windowHours <= 0 || topN <= 0 || len(points) < windowHours {
		return nil
	}

	candidates := make([]windowCandidate, 0, len(points)-windowHours+1)
	for i := 0; i+windowHours <= len(points); i++ {
		var sum float64
		var n int
		for _, p := range points[i : i+windowHours] {
			if v, ok := value(p.Score); ok {
				sum += v
				n++
			}
		}
		if n == 0 {
			continue
		}
		candidates = append(candidates, windowCandidate{start: i, end: i + windowHours - 1, avg: sum / float64(n)})
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].avg != candidates[b].avg {
			return candidates[a].avg > candidates[b].avg
		}
		return candidates[a].start < candidates[b].start
	})

	var picked []windowCandidate
	for _, c := range candidates {
		if len(picked) == topN {
			break
		}
		overlaps := false
		for _, p := range picked {
			if c.start <= p.end && p.start <= c.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			picked = append(picked, c)
		}
	}

	windows := make([]models.BestWindow, 0, len(picked))
	for _, p := range picked {
		windows = append(windows, models.BestWindow{
			Start:  points[p.start].Time,
			End:    points[p.end].Time,
			Score:  roundInt(p.avg),
			Reason: fmt.Sprintf("%dh window", windowHours),
		})
	}
	return windows
}
