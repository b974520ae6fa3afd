package scoring

import (
	"database/sql"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/carpcast/internal/models"
)

func timeScores(scores ...any) []TimeScore {
	out := make([]TimeScore, len(scores))
	for i, s := range scores {
		out[i].Time = fmt.Sprintf("2026-10-15T%02d:00:00Z", i)
		if f, ok := s.(float64); ok {
			out[i].Score = some(f)
		}
	}
	return out
}

func TestFindBestWindows(t *testing.T) {
	got := FindBestWindows(timeScores(30.0, 80.0, 70.0, 60.0, 50.0, 90.0), 3, 3)
	require.Len(t, got, 1)
	assert.Equal(t, models.BestWindow{
		Start:  "2026-10-15T01:00:00Z",
		End:    "2026-10-15T03:00:00Z",
		Score:  70,
		Reason: "3h window",
	}, got[0])
}

func TestFindBestWindows_NonOverlapping(t *testing.T) {
	got := FindBestWindows(timeScores(90.0, 90.0, 10.0, 10.0, 70.0, 70.0, 50.0), 2, 3)
	require.Len(t, got, 3)
	assert.Equal(t, 90, got[0].Score)
	assert.Equal(t, "2026-10-15T00:00:00Z", got[0].Start)
	assert.Equal(t, 70, got[1].Score)
	assert.Equal(t, "2026-10-15T04:00:00Z", got[1].Start)
	assert.Equal(t, 10, got[2].Score)
	assert.Equal(t, "2026-10-15T02:00:00Z", got[2].Start)
}

func TestFindBestWindows_TiesPreferEarlier(t *testing.T) {
	got := FindBestWindows(timeScores(50.0, 50.0, 50.0, 50.0), 1, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-10-15T00:00:00Z", got[0].Start)
	assert.Equal(t, "2026-10-15T01:00:00Z", got[1].Start)
	assert.Equal(t, "1h window", got[0].Reason)
}

func TestFindBestWindows_MissingScores(t *testing.T) {
	points := timeScores(nil, nil, nil, 50.0)
	points[1].Score = sql.NullFloat64{Float64: math.NaN(), Valid: true}

	got := FindBestWindows(points, 2, 3)
	require.Len(t, got, 1)
	assert.Equal(t, "2026-10-15T02:00:00Z", got[0].Start)
	assert.Equal(t, 50, got[0].Score)
}

func TestFindBestWindows_Degenerate(t *testing.T) {
	assert.Empty(t, FindBestWindows(timeScores(50.0, 60.0), 3, 3))
	assert.Empty(t, FindBestWindows(timeScores(50.0, 60.0), 0, 3))
	assert.Empty(t, FindBestWindows(timeScores(50.0, 60.0), 1, 0))
	assert.Empty(t, FindBestWindows(nil, DefaultWindowHours, DefaultTopN))
}
