package main

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/carpcast/internal/config"
	"github.com/lox/carpcast/internal/forecast"
	"github.com/lox/carpcast/internal/metrics"
	"github.com/lox/carpcast/internal/store"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `kong:"optional,name=env-file,default='.env',help='Path to a .env file.'"`

	DB          string `help:"SQLite database path (overrides CARPCAST_DB_PATH)." type:"path"`
	LogLevel    string `help:"Log level (overrides CARPCAST_LOG_LEVEL)."`
	WindowHours int    `help:"Best-window length in hours (overrides CARPCAST_WINDOW_HOURS)."`
	TopN        int    `name:"top-n" help:"Number of best windows (overrides CARPCAST_TOP_N)."`
	Workers     int    `help:"Concurrent scoring workers (overrides CARPCAST_WORKERS)."`
	MetricsFile string `help:"Write Prometheus metrics to this textfile on exit." type:"path"`

	Score     ScoreCmd     `cmd:"" help:"Score an input bundle hour by hour."`
	Windows   WindowsCmd   `cmd:"" help:"Find the best windows in a debug scoring dump."`
	Watertemp WaterTempCmd `cmd:"" help:"Print the estimated water temperature series for a bundle."`
	Compare   CompareCmd   `cmd:"" help:"Compare two debug scoring dumps."`
	Snapshot  SnapshotCmd  `cmd:"" help:"Manage stored input bundles."`
	Serve     ServeCmd     `cmd:"" help:"Run the HTTP API."`
}

// app carries what every command needs once flags and environment are
// resolved.
type app struct {
	ctx    context.Context
	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("carpcast"),
		kong.Description("Hourly fish activity scoring from weather, astro, hydro and marine data."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	kctx.FatalIfErrorf(err)
	cli.applyOverrides(cfg)
	kctx.FatalIfErrorf(cfg.Validate())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	err = kctx.Run(&app{ctx: ctx, cfg: cfg, logger: logger})
	if cli.MetricsFile != "" {
		if werr := metrics.WriteTextfile(cli.MetricsFile); werr != nil {
			logger.Error("write metrics textfile", "path", cli.MetricsFile, "error", werr)
		}
	}
	kctx.FatalIfErrorf(err)
}

func (c *CLI) applyOverrides(cfg *config.Config) {
	if c.DB != "" {
		cfg.DBPath = c.DB
	}
	if c.LogLevel != "" {
		cfg.LogLevel = c.LogLevel
	}
	if c.WindowHours != 0 {
		cfg.WindowHours = c.WindowHours
	}
	if c.TopN != 0 {
		cfg.TopN = c.TopN
	}
	if c.Workers != 0 {
		cfg.Workers = c.Workers
	}
}

func (a *app) runner() *forecast.Runner {
	return forecast.NewRunner(forecast.Options{
		WindowHours:     a.cfg.WindowHours,
		TopN:            a.cfg.TopN,
		WaterTempWindow: a.cfg.WaterTempWindow,
		Workers:         a.cfg.Workers,
		Location:        time.Local,
		Logger:          a.logger,
	})
}

// openStore opens and migrates the snapshot database. The caller closes
// the returned store.
func (a *app) openStore() (*store.Store, error) {
	db, err := store.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	st := store.New(db, a.logger)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

// recordRun writes the audit record for a finished run.
func (a *app) recordRun(st *store.Store, result *forecast.Result, snapshotID string, started time.Time) {
	run := store.Run{
		ID:         result.RunID,
		StartedAt:  started,
		FinishedAt: time.Now(),
		Species:    string(result.Species),
		Points:     len(result.Points),
		Failures:   result.Failures,
		Success:    true,
	}
	if snapshotID != "" {
		run.SnapshotID = sql.NullString{String: snapshotID, Valid: true}
	}
	if err := st.RecordRun(a.ctx, run); err != nil {
		a.logger.Warn("record run failed", "run_id", result.RunID, "error", err)
	}
}

func (a *app) recordFailedRun(st *store.Store, species, snapshotID string, started time.Time, runErr error) {
	run := store.Run{
		ID:           uuid.NewString(),
		StartedAt:    started,
		FinishedAt:   time.Now(),
		SnapshotID:   sql.NullString{String: snapshotID, Valid: snapshotID != ""},
		Species:      species,
		ErrorMessage: sql.NullString{String: runErr.Error(), Valid: true},
	}
	// The run context may be what failed.
	if err := st.RecordRun(context.WithoutCancel(a.ctx), run); err != nil {
		a.logger.Warn("record run failed", "error", err)
	}
}
