package storage

import (
	"context"

	"structural-break-lab/internal/domain"
)

// SeriesStore provides access to index_series storage.
type SeriesStore interface {
	// Insert adds a new series. Returns ErrDuplicateKey if series_id exists.
	Insert(ctx context.Context, s *domain.IndexSeries) error

	// GetByID retrieves a series by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, seriesID string) (*domain.IndexSeries, error)

	// GetAll retrieves all series, ordered by series_id ASC.
	GetAll(ctx context.Context) ([]*domain.IndexSeries, error)
}

// PriceBarStore provides access to price_bars storage.
type PriceBarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (series_id, date_ms).
	InsertBulk(ctx context.Context, bars []*domain.PriceBar) error

	// GetBySeriesID retrieves all bars for a series, ordered by date ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.PriceBar, error)

	// GetByDateRange retrieves bars for a series within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, seriesID string, start, end int64) ([]*domain.PriceBar, error)

	// GetLatestDate returns the newest bar date for a series.
	// Returns ErrNotFound if the series has no bars.
	GetLatestDate(ctx context.Context, seriesID string) (int64, error)
}

// RunStore provides access to analysis_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.AnalysisRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.AnalysisRun, error)

	// GetBySeriesID retrieves all runs for a series, ordered by created_at ASC.
	GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.AnalysisRun, error)

	// GetAll retrieves all runs, ordered by created_at ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.AnalysisRun, error)
}

// SummaryStore provides access to summary_records storage.
// One SummaryRecord expands to one row per metric channel.
type SummaryStore interface {
	// Insert adds a summary record. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, rec *domain.SummaryRecord) error

	// GetByRunID retrieves the summary for a run. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.SummaryRecord, error)
}

// MetricPointStore provides access to metric_points storage.
type MetricPointStore interface {
	// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, date_ms).
	InsertBulk(ctx context.Context, points []*domain.MetricPoint) error

	// GetByRunID retrieves all points for a run, ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.MetricPoint, error)

	// GetByDateRange retrieves points for a run within [start, end] (inclusive).
	GetByDateRange(ctx context.Context, runID string, start, end int64) ([]*domain.MetricPoint, error)
}

// CheckpointStore persists ingestion progress per (source, series).
// Checkpoints are the one mutable record type: Save overwrites.
type CheckpointStore interface {
	// Save stores or replaces a checkpoint.
	Save(ctx context.Context, cp *domain.IngestCheckpoint) error

	// Get retrieves a checkpoint. Returns ErrNotFound if none saved yet.
	Get(ctx context.Context, source, seriesID string) (*domain.IngestCheckpoint, error)
}
