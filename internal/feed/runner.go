package feed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/observability"
	"structural-break-lab/internal/storage"
)

const dayMs = int64(24 * time.Hour / time.Millisecond)

// Runner performs checkpointed bar ingestion for one series.
// Repeated runs resume from the last persisted bar date, so a run that
// finds no new bars is a no-op.
type Runner struct {
	source      BarSource
	series      *domain.IndexSeries
	barStore    storage.PriceBarStore
	checkpoints storage.CheckpointStore
	logger      *log.Logger
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source      BarSource
	Series      *domain.IndexSeries
	BarStore    storage.PriceBarStore
	Checkpoints storage.CheckpointStore
	Logger      *log.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Runner{
		source:      opts.Source,
		series:      opts.Series,
		barStore:    opts.BarStore,
		checkpoints: opts.Checkpoints,
		logger:      logger,
	}
}

// Run ingests all bars for the series inside interval, resuming from the
// checkpoint when one exists. It returns the number of bars persisted.
func (r *Runner) Run(ctx context.Context, interval domain.DateInterval) (int, error) {
	fetchFrom := interval

	cp, err := r.checkpoints.Get(ctx, r.source.Name(), r.series.SeriesID)
	switch {
	case err == nil:
		if cp.LastDateMs >= interval.EndMs {
			r.logger.Printf("Series %s up to date through %s, nothing to ingest",
				r.series.SeriesID, domain.FormatDateMs(cp.LastDateMs))
			return 0, nil
		}
		if cp.LastDateMs+dayMs > fetchFrom.StartMs {
			fetchFrom.StartMs = cp.LastDateMs + dayMs
		}
	case errors.Is(err, storage.ErrNotFound):
		// First run for this (source, series), ingest the full interval
	default:
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}

	fetchStart := time.Now()
	bars, err := r.source.Fetch(ctx, r.series.Symbol, fetchFrom)
	observability.RecordFetchLatency(r.source.Name(), time.Since(fetchStart).Seconds())
	if err != nil {
		observability.RecordIngestionError(r.source.Name())
		return 0, fmt.Errorf("fetch bars: %w", err)
	}

	if len(bars) == 0 {
		r.logger.Printf("Series %s: no new bars from %s", r.series.SeriesID, r.source.Name())
		return 0, nil
	}

	now := time.Now().UnixMilli()
	toInsert := make([]*domain.PriceBar, len(bars))
	for i := range bars {
		b := bars[i]
		b.SeriesID = r.series.SeriesID
		b.CreatedAt = now
		toInsert[i] = &b
	}

	if err := r.barStore.InsertBulk(ctx, toInsert); err != nil {
		observability.RecordIngestionError(r.source.Name())
		return 0, fmt.Errorf("insert bars: %w", err)
	}

	lastMs := bars[len(bars)-1].DateMs
	if err := r.checkpoints.Save(ctx, &domain.IngestCheckpoint{
		Source:     r.source.Name(),
		SeriesID:   r.series.SeriesID,
		LastDateMs: lastMs,
		UpdatedAt:  now,
	}); err != nil {
		return 0, fmt.Errorf("save checkpoint: %w", err)
	}

	observability.RecordBarsIngested(r.source.Name(), len(bars))
	observability.DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
	r.logger.Printf("Series %s: ingested %d bars through %s",
		r.series.SeriesID, len(bars), domain.FormatDateMs(lastMs))

	return len(bars), nil
}
