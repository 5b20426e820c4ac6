package postgres

import (
	"context"
	"fmt"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// CheckpointStore implements storage.CheckpointStore using PostgreSQL.
type CheckpointStore struct {
	pool *Pool
}

// NewCheckpointStore creates a new CheckpointStore.
func NewCheckpointStore(pool *Pool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)

// Save stores or replaces a checkpoint. Checkpoints are the one mutable
// record type, so a later save wins.
func (s *CheckpointStore) Save(ctx context.Context, cp *domain.IngestCheckpoint) error {
	query := `
		INSERT INTO ingest_checkpoints (
			source, series_id, last_date_ms, updated_at
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (source, series_id) DO UPDATE SET
			last_date_ms = EXCLUDED.last_date_ms,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.pool.Exec(ctx, query,
		cp.Source,
		cp.SeriesID,
		cp.LastDateMs,
		cp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save ingest checkpoint: %w", err)
	}
	return nil
}

// Get retrieves a checkpoint. Returns ErrNotFound if none saved yet.
func (s *CheckpointStore) Get(ctx context.Context, source, seriesID string) (*domain.IngestCheckpoint, error) {
	query := `
		SELECT source, series_id, last_date_ms, updated_at
		FROM ingest_checkpoints
		WHERE source = $1 AND series_id = $2
	`

	var cp domain.IngestCheckpoint
	err := s.pool.QueryRow(ctx, query, source, seriesID).Scan(
		&cp.Source,
		&cp.SeriesID,
		&cp.LastDateMs,
		&cp.UpdatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get ingest checkpoint: %w", err)
	}
	return &cp, nil
}
