package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/lox/carpcast/internal/metrics"
)

var ErrSnapshotNotFound = errors.New("store: snapshot not found")

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	zstdEncoder = mustZstd(zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault)))
	zstdDecoder = mustZstd(zstd.NewReader(nil, zstd.WithDecoderConcurrency(0)))
)

func mustZstd[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("store: init zstd: %v", err))
	}
	return v
}

// Snapshot is a stored scoring input bundle. Payload is the raw JSON bundle
// and is only populated by GetSnapshot.
type Snapshot struct {
	ID          string
	CreatedAt   time.Time
	Latitude    float64
	Longitude   float64
	Species     string
	Payload     []byte
	PayloadHash string
	PayloadSize int
}

// NewSnapshot describes a bundle to save.
type NewSnapshot struct {
	Latitude  float64
	Longitude float64
	Species   string
	Payload   []byte
}

// SaveSnapshot stores a compressed input bundle. Bundles are deduplicated
// on the SHA-256 of the payload; saving a known bundle returns the existing
// ID with created false.
func (s *Store) SaveSnapshot(ctx context.Context, snap NewSnapshot) (id string, created bool, err error) {
	sum := sha256.Sum256(snap.Payload)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.snapshotIDByHash(ctx, hash)
	if err != nil {
		return "", false, err
	}
	if existing != "" {
		return existing, false, nil
	}

	compressed := zstdEncoder.EncodeAll(snap.Payload, nil)
	id = uuid.NewString()

	var inserted int64
	err = s.retryBusy(ctx, "insert snapshot", func() error {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO snapshots (id, created_at, latitude, longitude, species, payload_zstd, payload_hash, payload_size)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(payload_hash) DO NOTHING
		`, id, s.now().UTC(), snap.Latitude, snap.Longitude, snap.Species, compressed, hash, len(snap.Payload))
		if err != nil {
			return err
		}
		inserted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return "", false, err
	}

	if inserted == 0 {
		// A concurrent writer stored the same bundle first.
		existing, err := s.snapshotIDByHash(ctx, hash)
		if err != nil {
			return "", false, err
		}
		return existing, false, nil
	}

	metrics.SnapshotsStored.Inc()
	s.logger.Debug("store: saved snapshot", "id", id, "bytes", len(snap.Payload), "compressed", len(compressed))
	return id, true, nil
}

func (s *Store) snapshotIDByHash(ctx context.Context, hash string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM snapshots WHERE payload_hash = ?`, hash).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup snapshot hash: %w", err)
	}
	return id, nil
}

// GetSnapshot returns the snapshot with its decompressed payload.
func (s *Store) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, latitude, longitude, species, payload_zstd, payload_hash, payload_size
		FROM snapshots WHERE id = ?
	`, id)

	var snap Snapshot
	var compressed []byte
	err := row.Scan(&snap.ID, &snap.CreatedAt, &snap.Latitude, &snap.Longitude, &snap.Species,
		&compressed, &snap.PayloadHash, &snap.PayloadSize)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot %s: %w", id, ErrSnapshotNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}

	snap.Payload, err = zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress snapshot %s: %w", id, err)
	}
	return &snap, nil
}

// ListSnapshots returns the newest snapshots first, without payloads.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, latitude, longitude, species, payload_hash, payload_size
		FROM snapshots
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []Snapshot
	for rows.Next() {
		var snap Snapshot
		if err := rows.Scan(&snap.ID, &snap.CreatedAt, &snap.Latitude, &snap.Longitude, &snap.Species,
			&snap.PayloadHash, &snap.PayloadSize); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// CleanupSnapshots deletes snapshots older than retentionDays and returns
// how many were removed.
func (s *Store) CleanupSnapshots(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().UTC().AddDate(0, 0, -retentionDays)

	var deleted int64
	err := s.retryBusy(ctx, "cleanup snapshots", func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE created_at < ?`, cutoff)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.logger.Info("store: cleaned up snapshots", "deleted", deleted, "retention_days", retentionDays)
	}
	return deleted, nil
}

// SnapshotStats summarises what the store holds.
type SnapshotStats struct {
	TotalCount      int
	CompressedBytes int64
	PayloadBytes    int64
	Oldest          time.Time
	Newest          time.Time
	CountBySpecies  map[string]int
}

func (s *Store) SnapshotStats(ctx context.Context) (*SnapshotStats, error) {
	stats := &SnapshotStats{CountBySpecies: make(map[string]int)}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(LENGTH(payload_zstd)), 0), COALESCE(SUM(payload_size), 0)
		FROM snapshots
	`)
	if err := row.Scan(&stats.TotalCount, &stats.CompressedBytes, &stats.PayloadBytes); err != nil {
		return nil, fmt.Errorf("snapshot stats: %w", err)
	}
	if stats.TotalCount == 0 {
		return stats, nil
	}

	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM snapshots ORDER BY created_at ASC LIMIT 1`).
		Scan(&stats.Oldest); err != nil {
		return nil, fmt.Errorf("oldest snapshot: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT created_at FROM snapshots ORDER BY created_at DESC LIMIT 1`).
		Scan(&stats.Newest); err != nil {
		return nil, fmt.Errorf("newest snapshot: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT species, COUNT(*) FROM snapshots GROUP BY species`)
	if err != nil {
		return nil, fmt.Errorf("snapshot stats by species: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var species string
		var count int
		if err := rows.Scan(&species, &count); err != nil {
			return nil, err
		}
		stats.CountBySpecies[species] = count
	}
	return stats, rows.Err()
}
