package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lox/carpcast/internal/forecast"
	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/scoring"
	"github.com/lox/carpcast/internal/store"
)

const maxBodyBytes = 4 << 20

type Server struct {
	runner   *forecast.Runner
	store    *store.Store
	port     string
	logger   *slog.Logger
	validate *validator.Validate
}

// NewServer wires the HTTP surface. The store is optional; when set, every
// scored bundle is kept as a snapshot and the run is recorded.
func NewServer(runner *forecast.Runner, st *store.Store, port string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		runner:   runner,
		store:    st,
		port:     port,
		logger:   logger,
		validate: validator.New(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Post("/score", s.handleScore)
		r.Post("/windows", s.handleWindows)
		r.Post("/watertemp", s.handleWaterTemp)
	})
	return r
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api: listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

type HealthStatus struct {
	Status           string `json:"status"`
	SchemaVersion    int    `json:"schema_version,omitempty"`
	Snapshots        int    `json:"snapshots"`
	LastSnapshotUnix int64  `json:"last_snapshot_unix,omitempty"`
	Error            string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{Status: "ok"}
	if s.store != nil {
		version, err := s.store.MigrationVersion()
		if err == nil {
			health.SchemaVersion = version
			var stats *store.SnapshotStats
			stats, err = s.store.SnapshotStats(r.Context())
			if err == nil {
				health.Snapshots = stats.TotalCount
				if !stats.Newest.IsZero() {
					health.LastSnapshotUnix = stats.Newest.Unix()
				}
			}
		}
		if err != nil {
			health.Status = "error"
			health.Error = err.Error()
		}
	}

	status := http.StatusOK
	if health.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}

	bundle, err := forecast.DecodeBundle(bytes.NewReader(payload))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := bundle.Input(started)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.runner.Run(r.Context(), in)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, forecast.ErrNoWeather) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	s.keep(r.Context(), payload, in, result, started)
	s.writeJSON(w, http.StatusOK, result)
}

// keep stores the bundle and the run audit record. Failures are logged and
// never fail the request.
func (s *Server) keep(ctx context.Context, payload []byte, in forecast.Input, result *forecast.Result, started time.Time) {
	if s.store == nil {
		return
	}
	run := store.Run{
		ID:         result.RunID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Species:    string(result.Species),
		Points:     len(result.Points),
		Failures:   result.Failures,
		Success:    true,
	}
	id, _, err := s.store.SaveSnapshot(ctx, store.NewSnapshot{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Species:   string(result.Species),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Warn("api: save snapshot failed", "run_id", result.RunID, "error", err)
	} else {
		run.SnapshotID = sql.NullString{String: id, Valid: true}
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Warn("api: record run failed", "run_id", result.RunID, "error", err)
	}
}

type windowItem struct {
	Time  string   `json:"time" validate:"required"`
	Score *float64 `json:"score" validate:"omitempty,min=0,max=100"`
}

type windowsRequest struct {
	Items       []windowItem `json:"items" validate:"required,min=1,dive"`
	WindowHours int          `json:"windowHours" validate:"omitempty,min=1,max=24"`
	TopN        int          `json:"topN" validate:"omitempty,min=1,max=10"`
}

type windowsResponse struct {
	Windows []models.BestWindow `json:"windows"`
}

func (s *Server) handleWindows(w http.ResponseWriter, r *http.Request) {
	var req windowsRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.WindowHours == 0 {
		req.WindowHours = scoring.DefaultWindowHours
	}
	if req.TopN == 0 {
		req.TopN = scoring.DefaultTopN
	}

	points := make([]scoring.TimeScore, len(req.Items))
	for i, item := range req.Items {
		points[i].Time = item.Time
		if item.Score != nil {
			points[i].Score = sql.NullFloat64{Float64: *item.Score, Valid: true}
		}
	}

	windows := scoring.FindBestWindows(points, req.WindowHours, req.TopN)
	if windows == nil {
		windows = []models.BestWindow{}
	}
	s.writeJSON(w, http.StatusOK, windowsResponse{Windows: windows})
}

type waterTempRequest struct {
	Weather []forecast.WeatherHour `json:"weather" validate:"required,min=1,dive"`
	Seed    *float64               `json:"seed"`
}

type waterTempPoint struct {
	Time      string  `json:"time"`
	WaterTemp float64 `json:"waterTemp"`
}

type waterTempResponse struct {
	Series []waterTempPoint `json:"series"`
}

func (s *Server) handleWaterTemp(w http.ResponseWriter, r *http.Request) {
	var req waterTempRequest
	if !s.decode(w, r, &req) {
		return
	}

	series := make([]models.WeatherData, len(req.Weather))
	for i, h := range req.Weather {
		series[i] = h.WeatherData()
	}
	var seed sql.NullFloat64
	if req.Seed != nil {
		seed = sql.NullFloat64{Float64: *req.Seed, Valid: true}
	}

	estimated := scoring.EstimateWaterTempSeries(series, seed)
	resp := waterTempResponse{Series: make([]waterTempPoint, len(series))}
	for i := range series {
		resp.Series[i] = waterTempPoint{Time: series[i].Time, WaterTemp: estimated[i]}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into dst and validates it, writing a 400 on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			err = fmt.Errorf("invalid %s (%s)", verrs[0].Namespace(), verrs[0].Tag())
		}
		s.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("api: write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("api: request failed", "error", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
