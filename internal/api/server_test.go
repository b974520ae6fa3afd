package api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/carpcast/internal/api"
	"github.com/lox/carpcast/internal/forecast"
	"github.com/lox/carpcast/internal/store"

	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := store.New(db, nil)
	if err := s.Migrate(); err != nil {
		t.Fatal(err)
	}
	return s
}

func newServer(t *testing.T, st *store.Store) http.Handler {
	t.Helper()
	return api.NewServer(forecast.NewRunner(forecast.Options{Workers: 2}), st, "8080", nil).Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func bundle(hours int) string {
	var weather []string
	for i := range hours {
		weather = append(weather, fmt.Sprintf(
			`{"time":"2026-06-01T%02d:00:00Z","temperature":%d,"humidity":70,"pressure":1014,"windSpeed":8,"precipitation":0,"cloudCover":40}`,
			i, 18+i%5))
	}
	return `{"latitude":40,"longitude":-3.7,"species":"carp","mode":"carpfishing","anchorNow":"2026-06-01T08:00:00Z",` +
		`"weather":[` + strings.Join(weather, ",") + `],` +
		`"astro":{"sunrise":"2026-06-01T06:45:00Z","sunset":"2026-06-01T21:30:00Z","moonPhase":0.3},` +
		`"hydro":{"waterTemp":16.5}}`
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()
	h := newServer(t, setupTestStore(t))

	w := do(t, h, "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var health api.HealthStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 3, health.SchemaVersion)
	assert.Zero(t, health.Snapshots)
}

func TestHealthEndpoint_NoStore(t *testing.T) {
	t.Parallel()
	w := do(t, newServer(t, nil), "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestScoreEndpoint(t *testing.T) {
	t.Parallel()
	st := setupTestStore(t)
	h := newServer(t, st)

	w := do(t, h, "POST", "/api/score", bundle(12))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var res forecast.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Points, 12)
	assert.Len(t, res.Dump, 12)
	assert.NotEmpty(t, res.BestWindows)
	assert.True(t, res.DataAvailability.Hydro)
	require.NotNil(t, res.Points[8].WaterTemp)
	assert.Equal(t, 16.5, *res.Points[8].WaterTemp)

	// The bundle is kept and the run recorded; scoring it again dedups.
	w = do(t, h, "POST", "/api/score", bundle(12))
	require.Equal(t, http.StatusOK, w.Code)

	snaps, err := st.ListSnapshots(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	runs, err := st.RecentRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, snaps[0].ID, runs[0].SnapshotID.String)
	assert.Equal(t, 12, runs[0].Points)
}

func TestScoreEndpoint_Invalid(t *testing.T) {
	t.Parallel()
	h := newServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"malformed", `{"latitude":`},
		{"latitude", strings.Replace(bundle(2), `"latitude":40`, `"latitude":120`, 1)},
		{"no weather", `{"latitude":40,"longitude":0,"weather":[],"astro":{"sunrise":"a","sunset":"b"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/api/score", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestWindowsEndpoint(t *testing.T) {
	t.Parallel()
	h := newServer(t, nil)

	body := `{"items":[
		{"time":"2026-06-01T00:00:00Z","score":30},
		{"time":"2026-06-01T01:00:00Z","score":80},
		{"time":"2026-06-01T02:00:00Z","score":70},
		{"time":"2026-06-01T03:00:00Z","score":60},
		{"time":"2026-06-01T04:00:00Z","score":50},
		{"time":"2026-06-01T05:00:00Z","score":90}
	]}`
	w := do(t, h, "POST", "/api/windows", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Windows []struct {
			Start  string `json:"start"`
			End    string `json:"end"`
			Score  int    `json:"score"`
			Reason string `json:"reason"`
		} `json:"windows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Windows, 1)
	assert.Equal(t, "2026-06-01T01:00:00Z", resp.Windows[0].Start)
	assert.Equal(t, "2026-06-01T03:00:00Z", resp.Windows[0].End)
	assert.Equal(t, 70, resp.Windows[0].Score)
	assert.Equal(t, "3h window", resp.Windows[0].Reason)
}

func TestWindowsEndpoint_Invalid(t *testing.T) {
	t.Parallel()
	h := newServer(t, nil)

	for _, body := range []string{
		`{"items":[]}`,
		`{"items":[{"time":"2026-06-01T00:00:00Z","score":30}],"windowHours":48}`,
		`{"items":[{"score":30}]}`,
	} {
		w := do(t, h, "POST", "/api/windows", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestWaterTempEndpoint(t *testing.T) {
	t.Parallel()
	h := newServer(t, nil)

	body := `{"seed":12,"weather":[
		{"time":"2026-06-01T00:00:00Z","temperature":20,"humidity":70,"pressure":1014,"windSpeed":0,"precipitation":0,"cloudCover":0}
	]}`
	w := do(t, h, "POST", "/api/watertemp", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Series []struct {
			Time      string  `json:"time"`
			WaterTemp float64 `json:"waterTemp"`
		} `json:"series"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Series, 1)
	// 12 + 0.08*(20-12) + 0.08
	assert.InDelta(t, 12.72, resp.Series[0].WaterTemp, 1e-9)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	h := newServer(t, nil)

	w := do(t, h, "POST", "/api/score", bundle(4))
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "carpcast_scores_computed_total")
}

func TestUnknownRoute(t *testing.T) {
	t.Parallel()
	w := do(t, newServer(t, nil), "GET", "/api/score", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
