package store

import (
	"context"
	"log/slog"
	"time"
)

// Janitor periodically removes snapshots past the retention period.
type Janitor struct {
	store         *Store
	retentionDays int
	interval      time.Duration
	logger        *slog.Logger
}

func NewJanitor(s *Store, retentionDays int, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{store: s, retentionDays: retentionDays, interval: interval, logger: s.logger}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.retentionDays <= 0 {
		j.logger.Info("janitor: retention disabled")
		return
	}
	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor: shutting down")
			return
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if _, err := j.store.CleanupSnapshots(ctx, j.retentionDays); err != nil {
		j.logger.Warn("janitor: cleanup failed", "error", err)
	}
}
