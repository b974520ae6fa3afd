package forecast

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lox/carpcast/internal/dump"
	"github.com/lox/carpcast/internal/metrics"
	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/scoring"
	"github.com/lox/carpcast/internal/timeutil"
)

const (
	DefaultWaterTempWindow = 2 * time.Hour
	DefaultWorkers         = 4

	fallbackOverall    = 50
	fallbackConfidence = 0.65
	fallbackReason     = "Scoring failed"
)

var ErrNoWeather = errors.New("forecast: no weather hours to score")

type Options struct {
	WindowHours int
	TopN        int
	// WaterTempWindow is how far from the anchor a measured water
	// temperature is trusted over the estimated series.
	WaterTempWindow time.Duration
	Workers         int
	// Location decides which points belong to "today".
	Location *time.Location
	Logger   *slog.Logger
}

// Input is one location's hourly series plus the shared astro, hydro and
// marine context.
type Input struct {
	Latitude  float64
	Longitude float64
	Species   models.FishSpecies
	Mode      models.FishingMode
	AnchorNow time.Time
	Weather   []models.WeatherData
	Astro     models.AstroData
	Hydro     *models.HydroData
	Marine    *models.MarineData
}

type Point struct {
	Time         string               `json:"time"`
	Weather      dump.Weather         `json:"weather"`
	Derived      dump.Derived         `json:"derived"`
	WaterTemp    *float64             `json:"waterTemp"`
	Score        models.ActivityScore `json:"score"`
	QualityFlags []string             `json:"qualityFlags,omitempty"`
	Failed       bool                 `json:"failed,omitempty"`
}

type DataAvailability struct {
	Weather bool `json:"weather"`
	Astro   bool `json:"astro"`
	Hydro   bool `json:"hydro"`
	Marine  bool `json:"marine"`
}

type Result struct {
	RunID            string              `json:"runId"`
	GeneratedAt      time.Time           `json:"generatedAt"`
	Species          models.FishSpecies  `json:"species"`
	Points           []Point             `json:"points"`
	BestWindows      []models.BestWindow `json:"bestWindows"`
	BestWindowsToday []models.BestWindow `json:"bestWindowsToday"`
	DataAvailability DataAvailability    `json:"dataAvailability"`
	Failures         int                 `json:"failures"`
	Dump             []dump.Entry        `json:"debug_scoring_dump"`
}

// Runner scores a whole hourly series. It is safe for concurrent use.
type Runner struct {
	engine *scoring.Engine
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func NewRunner(opts Options) *Runner {
	if opts.WindowHours <= 0 {
		opts.WindowHours = scoring.DefaultWindowHours
	}
	if opts.TopN <= 0 {
		opts.TopN = scoring.DefaultTopN
	}
	if opts.WaterTempWindow <= 0 {
		opts.WaterTempWindow = DefaultWaterTempWindow
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Runner{
		engine: scoring.NewEngine(opts.Logger),
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
	}
}

// Run scores every hour of the input. A failing hour gets a neutral
// fallback score rather than failing the run; only cancellation of ctx
// aborts it.
func (r *Runner) Run(ctx context.Context, in Input) (*Result, error) {
	if len(in.Weather) == 0 {
		return nil, ErrNoWeather
	}
	start := time.Now()
	defer func() { metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()

	anchor := in.AnchorNow
	if anchor.IsZero() {
		anchor = r.now()
	}
	anchorMs := anchor.UnixMilli()
	species := scoring.NormalizeSpeciesForMode(in.Species, in.Mode)

	var seed sql.NullFloat64
	if in.Hydro != nil {
		seed = in.Hydro.WaterTemp
	}
	estimated := scoring.EstimateWaterTempSeries(in.Weather, seed)

	points := make([]Point, len(in.Weather))
	entries := make([]dump.Entry, len(in.Weather))
	pointMs := make([]int64, len(in.Weather))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i := range in.Weather {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			points[i], entries[i], pointMs[i] = r.scorePoint(in, i, species, anchorMs, estimated[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	failures := 0
	all := make([]scoring.TimeScore, len(points))
	var today []timedScore
	anchorDay := dayOf(anchor.In(r.opts.Location))
	for i, p := range points {
		if p.Failed {
			failures++
		}
		ts := scoring.TimeScore{Time: p.Time, Score: sql.NullFloat64{Float64: float64(p.Score.Overall), Valid: true}}
		all[i] = ts
		if dayOf(time.UnixMilli(pointMs[i]).In(r.opts.Location)) == anchorDay {
			today = append(today, timedScore{ms: pointMs[i], ts: ts})
		}
	}
	sort.SliceStable(today, func(a, b int) bool { return today[a].ms < today[b].ms })
	todayScores := make([]scoring.TimeScore, len(today))
	for i, t := range today {
		todayScores[i] = t.ts
	}

	result := &Result{
		RunID:            uuid.NewString(),
		GeneratedAt:      r.now().UTC(),
		Species:          species,
		Points:           points,
		BestWindows:      nonNil(scoring.FindBestWindows(all, r.opts.WindowHours, r.opts.TopN)),
		BestWindowsToday: nonNil(scoring.FindBestWindows(todayScores, r.opts.WindowHours, r.opts.TopN)),
		DataAvailability: DataAvailability{
			Weather: true,
			Astro:   in.Astro.Sunrise != "" && in.Astro.Sunset != "",
			Hydro:   in.Hydro != nil,
			Marine:  in.Marine != nil,
		},
		Failures: failures,
		Dump:     entries,
	}

	r.logger.Info("forecast: run complete",
		"run_id", result.RunID,
		"species", string(species),
		"points", len(points),
		"failures", failures,
		"duration", time.Since(start),
	)
	return result, nil
}

type timedScore struct {
	ms int64
	ts scoring.TimeScore
}

func (r *Runner) scorePoint(in Input, i int, species models.FishSpecies, anchorMs int64, estimated float64) (Point, dump.Entry, int64) {
	w := in.Weather[i]
	derived := scoring.ComputeDerivedFeatures(in.Weather, i)

	nowMs, err := timeutil.ParseMs(w.Time)
	if err != nil {
		nowMs = anchorMs
	}
	waterTemp := r.waterTempFor(in.Hydro, nowMs, anchorMs, estimated)

	score, err := r.engine.Calculate(scoring.CalculateArgs{
		Weather: w,
		Astro:   in.Astro,
		Hydro:   in.Hydro,
		Marine:  in.Marine,
		Mode:    in.Mode,
		Species: in.Species,
		Context: &models.ScoringContext{
			NowMs:       nowMs,
			AnchorNowMs: sql.NullInt64{Int64: anchorMs, Valid: true},
			Latitude:    in.Latitude,
			Derived:     &derived,
			WaterTemp:   waterTemp,
		},
	})
	failed := err != nil
	if failed {
		r.logger.Warn("forecast: point scoring failed", "time", w.Time, "species", string(species), "error", err)
		metrics.ScoringFailures.WithLabelValues(failureReason(err)).Inc()
		score = fallbackScore(w)
	} else {
		metrics.ScoresComputed.WithLabelValues(string(species)).Inc()
		metrics.ScoreOverall.Observe(float64(score.Overall))
	}

	entry := dump.NewEntry(w, derived, waterTemp, score)
	return Point{
		Time:         w.Time,
		Weather:      entry.Weather,
		Derived:      entry.Derived,
		WaterTemp:    entry.WaterTempForScoring,
		Score:        score,
		QualityFlags: QualityFlags(w),
		Failed:       failed,
	}, entry, nowMs
}

// waterTempFor prefers the measured water temperature near the anchor and
// the estimated series everywhere else.
func (r *Runner) waterTempFor(hydro *models.HydroData, nowMs, anchorMs int64, estimated float64) sql.NullFloat64 {
	if hydro != nil && hydro.WaterTemp.Valid {
		diff := nowMs - anchorMs
		if diff < 0 {
			diff = -diff
		}
		if diff <= r.opts.WaterTempWindow.Milliseconds() {
			return hydro.WaterTemp
		}
	}
	return sql.NullFloat64{Float64: estimated, Valid: true}
}

func failureReason(err error) string {
	if errors.Is(err, scoring.ErrInvalidTimestamp) {
		return "invalid_timestamp"
	}
	return "other"
}

// fallbackScore is the neutral score used for an hour that could not be
// scored.
func fallbackScore(w models.WeatherData) models.ActivityScore {
	return models.ActivityScore{
		Overall: fallbackOverall,
		Factors: models.Factors{
			Weather:   50,
			Astronomy: 50,
			Pressure:  w.Pressure,
			Wind:      w.WindSpeed,
			Moon:      50,
			Hydro:     0,
		},
		Reasons:        []string{fallbackReason},
		BestWindows:    []models.BestWindow{},
		Recommendation: models.RecommendationUnknown,
		Confidence:     fallbackConfidence,
		Breakdown: models.ScoreBreakdown{
			Subscores: models.Subscores{Meteo: 50, Astro: 50},
			BioMultipliers: models.BioMultipliers{
				SeasonFactor: 1,
				SpawnPenalty: 1,
				NightFactor:  1,
				MoonFactor:   1,
			},
		},
	}
}

func dayOf(t time.Time) string {
	return t.Format(time.DateOnly)
}

func nonNil(ws []models.BestWindow) []models.BestWindow {
	if ws == nil {
		return []models.BestWindow{}
	}
	return ws
}
