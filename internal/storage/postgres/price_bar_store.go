package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// PriceBarStore implements storage.PriceBarStore using PostgreSQL.
type PriceBarStore struct {
	pool *Pool
}

// NewPriceBarStore creates a new PriceBarStore.
func NewPriceBarStore(pool *Pool) *PriceBarStore {
	return &PriceBarStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)

// InsertBulk adds multiple bars atomically. Fails entire batch on any
// duplicate (series_id, date_ms).
func (s *PriceBarStore) InsertBulk(ctx context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO price_bars (
			series_id, date_ms, close, created_at
		) VALUES ($1, $2, $3, $4)
	`

	for _, b := range bars {
		_, err := tx.Exec(ctx, query,
			b.SeriesID,
			b.DateMs,
			b.Close,
			b.CreatedAt,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert price bar in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetBySeriesID retrieves all bars for a series, ordered by date ASC.
func (s *PriceBarStore) GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.PriceBar, error) {
	query := `
		SELECT series_id, date_ms, close, created_at
		FROM price_bars
		WHERE series_id = $1
		ORDER BY date_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("get price bars by series id: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetByDateRange retrieves bars for a series within [start, end] (inclusive).
func (s *PriceBarStore) GetByDateRange(ctx context.Context, seriesID string, start, end int64) ([]*domain.PriceBar, error) {
	query := `
		SELECT series_id, date_ms, close, created_at
		FROM price_bars
		WHERE series_id = $1 AND date_ms >= $2 AND date_ms <= $3
		ORDER BY date_ms ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get price bars by date range: %w", err)
	}
	defer rows.Close()

	return scanPriceBars(rows)
}

// GetLatestDate returns the newest bar date for a series.
// Returns ErrNotFound if the series has no bars.
func (s *PriceBarStore) GetLatestDate(ctx context.Context, seriesID string) (int64, error) {
	query := `
		SELECT date_ms
		FROM price_bars
		WHERE series_id = $1
		ORDER BY date_ms DESC
		LIMIT 1
	`

	var dateMs int64
	err := s.pool.QueryRow(ctx, query, seriesID).Scan(&dateMs)
	if err != nil {
		if isNotFoundError(err) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("get latest price bar date: %w", err)
	}
	return dateMs, nil
}

// scanPriceBars scans multiple rows into a slice of PriceBar.
func scanPriceBars(rows pgx.Rows) ([]*domain.PriceBar, error) {
	var bars []*domain.PriceBar

	for rows.Next() {
		var b domain.PriceBar

		err := rows.Scan(
			&b.SeriesID,
			&b.DateMs,
			&b.Close,
			&b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan price bar row: %w", err)
		}

		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price bar rows: %w", err)
	}

	return bars, nil
}
