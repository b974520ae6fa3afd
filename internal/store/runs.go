package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run is an audit record of one batch scoring run.
type Run struct {
	ID           string
	StartedAt    time.Time
	FinishedAt   time.Time
	SnapshotID   sql.NullString
	Species      string
	Points       int
	Failures     int
	Success      bool
	ErrorMessage sql.NullString
}

func (s *Store) RecordRun(ctx context.Context, run Run) error {
	return s.retryBusy(ctx, "record run", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO scoring_runs (id, started_at, finished_at, snapshot_id, species, points, failures, success, error_message)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.SnapshotID, run.Species,
			run.Points, run.Failures, run.Success, run.ErrorMessage)
		return err
	})
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, snapshot_id, species, points, failures, success, error_message
		FROM scoring_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.SnapshotID, &r.Species,
			&r.Points, &r.Failures, &r.Success, &r.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunHealthSummary aggregates runs per day and species.
type RunHealthSummary struct {
	Date          string
	Species       string
	TotalRuns     int
	FailedRuns    int
	TotalPoints   int64
	TotalFailures int64
}

// RunHealth summarises the runs started in the last days days.
func (s *Store) RunHealth(ctx context.Context, days int) ([]RunHealthSummary, error) {
	since := s.now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			SUBSTR(started_at, 1, 10) as date,
			species,
			COUNT(*) as total_runs,
			SUM(CASE WHEN success THEN 0 ELSE 1 END) as failed_runs,
			COALESCE(SUM(points), 0) as total_points,
			COALESCE(SUM(failures), 0) as total_failures
		FROM scoring_runs
		WHERE started_at >= ?
		GROUP BY date, species
		ORDER BY date DESC, species
	`, since)
	if err != nil {
		return nil, fmt.Errorf("run health: %w", err)
	}
	defer rows.Close()

	var results []RunHealthSummary
	for rows.Next() {
		var h RunHealthSummary
		if err := rows.Scan(&h.Date, &h.Species, &h.TotalRuns, &h.FailedRuns, &h.TotalPoints, &h.TotalFailures); err != nil {
			return nil, err
		}
		results = append(results, h)
	}
	return results, rows.Err()
}
