// Package feed acquires daily price bars from external sources and
// persists them through checkpointed ingestion runs.
package feed

import (
	"context"
	"errors"

	"structural-break-lab/internal/domain"
)

// Source names as persisted in index_series.source and ingest_checkpoints.source.
const (
	SourceCSV       = "csv"
	SourceHTTP      = "http"
	SourceWS        = "ws"
	SourceSynthetic = "synthetic"
)

// ErrInvalidBarData indicates a source returned bars that cannot be ingested.
var ErrInvalidBarData = errors.New("invalid bar data")

// BarSource fetches daily close bars for a symbol over a closed date interval.
// Implementations return bars in ascending date order with strictly positive
// closes; Normalize enforces both before ingestion.
type BarSource interface {
	// Name returns the source identifier used for checkpoints and metrics.
	Name() string

	// Fetch retrieves all bars for symbol with dates inside interval.
	Fetch(ctx context.Context, symbol string, interval domain.DateInterval) ([]domain.PriceBar, error)
}
