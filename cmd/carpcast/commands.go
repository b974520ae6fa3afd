package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lox/carpcast/internal/api"
	"github.com/lox/carpcast/internal/dump"
	"github.com/lox/carpcast/internal/forecast"
	"github.com/lox/carpcast/internal/models"
	"github.com/lox/carpcast/internal/scoring"
	"github.com/lox/carpcast/internal/store"
)

// readInput reads a file, or stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type ScoreCmd struct {
	Bundle  string `arg:"" help:"Input bundle JSON file, or - for stdin."`
	Species string `help:"Override the bundle species."`
	JSON    bool   `help:"Print the full result as JSON."`
	Dump    string `help:"Write the debug scoring dump to this file." type:"path"`
	Save    bool   `help:"Keep the bundle as a snapshot and record the run."`
}

func (c *ScoreCmd) Run(a *app) error {
	started := time.Now()
	payload, err := readInput(c.Bundle)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	b, payload, err := decodeWithSpecies(payload, c.Species)
	if err != nil {
		return err
	}
	in, err := b.Input(started)
	if err != nil {
		return err
	}

	result, err := a.runner().Run(a.ctx, in)
	if err != nil {
		return err
	}

	if c.Dump != "" {
		if err := writeJSONFile(c.Dump, map[string]any{dump.DumpKey: result.Dump}); err != nil {
			return fmt.Errorf("write dump: %w", err)
		}
	}

	if c.Save {
		st, err := a.openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		id, created, err := st.SaveSnapshot(a.ctx, newSnapshot(in, result.Species, payload))
		if err != nil {
			return err
		}
		a.recordRun(st, result, id, started)
		a.logger.Info("snapshot saved", "id", id, "created", created)
	}

	if c.JSON {
		return printJSON(result)
	}
	return renderResult(os.Stdout, result)
}

// decodeWithSpecies decodes a bundle and applies a species override. When
// overridden, the returned payload is the re-encoded bundle so that a stored
// snapshot replays with the species that was scored.
func decodeWithSpecies(payload []byte, species string) (*forecast.Bundle, []byte, error) {
	b, err := forecast.DecodeBundle(bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	if species == "" || species == b.Species {
		return b, payload, nil
	}
	b.Species = species
	encoded, err := b.Encode()
	if err != nil {
		return nil, nil, err
	}
	return b, encoded, nil
}

type WindowsCmd struct {
	Dump string `arg:"" help:"Debug scoring dump file, or - for stdin."`
}

func (c *WindowsCmd) Run(a *app) error {
	data, err := readInput(c.Dump)
	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	entries, err := dump.Load(bytes.NewReader(data))
	if err != nil {
		return err
	}

	points := make([]scoring.TimeScore, len(entries))
	for i, e := range entries {
		points[i].Time = e.Time
		if e.Overall != nil {
			points[i].Score = sql.NullFloat64{Float64: *e.Overall, Valid: true}
		}
	}
	return renderWindows(os.Stdout, "Best windows", scoring.FindBestWindows(points, a.cfg.WindowHours, a.cfg.TopN))
}

type WaterTempCmd struct {
	Bundle string `arg:"" help:"Input bundle JSON file, or - for stdin."`
}

func (c *WaterTempCmd) Run(a *app) error {
	data, err := readInput(c.Bundle)
	if err != nil {
		return fmt.Errorf("read bundle: %w", err)
	}
	b, err := forecast.DecodeBundle(bytes.NewReader(data))
	if err != nil {
		return err
	}
	in, err := b.Input(time.Now())
	if err != nil {
		return err
	}

	var seed sql.NullFloat64
	if in.Hydro != nil {
		seed = in.Hydro.WaterTemp
	}
	return renderWaterTemp(os.Stdout, in.Weather, scoring.EstimateWaterTempSeries(in.Weather, seed))
}

var errDumpsDiffer = errors.New("dumps differ")

type CompareCmd struct {
	A          string `arg:"" help:"First dump file." type:"existingfile"`
	B          string `arg:"" help:"Second dump file." type:"existingfile"`
	Tolerances string `help:"TOML file of per-field tolerance overrides." type:"existingfile"`
}

func (c *CompareCmd) Run(a *app) error {
	tol := dump.DefaultTolerances()
	if c.Tolerances != "" {
		var err error
		if tol, err = dump.LoadTolerances(c.Tolerances); err != nil {
			return err
		}
	}

	left, err := loadDumpFile(c.A)
	if err != nil {
		return err
	}
	right, err := loadDumpFile(c.B)
	if err != nil {
		return err
	}

	report := dump.Compare(left, right, tol)
	if err := report.WriteText(os.Stdout); err != nil {
		return err
	}
	if !report.Equal() {
		return errDumpsDiffer
	}
	return nil
}

func loadDumpFile(path string) ([]dump.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	entries, err := dump.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

type ServeCmd struct {
	Port int `help:"HTTP port (overrides CARPCAST_PORT)."`
}

func (c *ServeCmd) Run(a *app) error {
	if c.Port != 0 {
		a.cfg.Port = c.Port
	}
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	go store.NewJanitor(st, a.cfg.SnapshotRetentionDays, time.Hour).Run(a.ctx)

	server := api.NewServer(a.runner(), st, fmt.Sprint(a.cfg.Port), a.logger)
	return server.Run(a.ctx)
}

func newSnapshot(in forecast.Input, species models.FishSpecies, payload []byte) store.NewSnapshot {
	return store.NewSnapshot{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		Species:   string(species),
		Payload:   payload,
	}
}
