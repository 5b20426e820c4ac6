package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using PostgreSQL.
type SeriesStore struct {
	pool *Pool
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(pool *Pool) *SeriesStore {
	return &SeriesStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// Insert adds a new series. Returns ErrDuplicateKey if series_id exists.
func (s *SeriesStore) Insert(ctx context.Context, series *domain.IndexSeries) error {
	query := `
		INSERT INTO index_series (
			series_id, symbol, name, currency, source, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		series.SeriesID,
		series.Symbol,
		series.Name,
		series.Currency,
		series.Source,
		series.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert index series: %w", err)
	}
	return nil
}

// GetByID retrieves a series by its ID. Returns ErrNotFound if not exists.
func (s *SeriesStore) GetByID(ctx context.Context, seriesID string) (*domain.IndexSeries, error) {
	query := `
		SELECT series_id, symbol, name, currency, source, created_at
		FROM index_series
		WHERE series_id = $1
	`

	row := s.pool.QueryRow(ctx, query, seriesID)
	series, err := scanIndexSeries(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get index series by id: %w", err)
	}
	return series, nil
}

// GetAll retrieves all series, ordered by series_id ASC.
func (s *SeriesStore) GetAll(ctx context.Context) ([]*domain.IndexSeries, error) {
	query := `
		SELECT series_id, symbol, name, currency, source, created_at
		FROM index_series
		ORDER BY series_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all index series: %w", err)
	}
	defer rows.Close()

	var result []*domain.IndexSeries
	for rows.Next() {
		var series domain.IndexSeries
		err := rows.Scan(
			&series.SeriesID,
			&series.Symbol,
			&series.Name,
			&series.Currency,
			&series.Source,
			&series.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan index series row: %w", err)
		}
		result = append(result, &series)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index series rows: %w", err)
	}

	return result, nil
}

// scanIndexSeries scans a single row into an IndexSeries.
func scanIndexSeries(row pgx.Row) (*domain.IndexSeries, error) {
	var series domain.IndexSeries

	err := row.Scan(
		&series.SeriesID,
		&series.Symbol,
		&series.Name,
		&series.Currency,
		&series.Source,
		&series.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &series, nil
}
