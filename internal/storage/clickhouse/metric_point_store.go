package clickhouse

import (
	"context"
	"fmt"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// MetricPointStore implements storage.MetricPointStore using ClickHouse.
type MetricPointStore struct {
	conn *Conn
}

// NewMetricPointStore creates a new MetricPointStore.
func NewMetricPointStore(conn *Conn) *MetricPointStore {
	return &MetricPointStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MetricPointStore = (*MetricPointStore)(nil)

// InsertBulk adds multiple points. Fails entire batch on duplicate (run_id, date_ms).
// MergeTree does not enforce uniqueness, so duplicates are checked explicitly
// before the batch insert.
func (s *MetricPointStore) InsertBulk(ctx context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		runID  string
		dateMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range points {
		k := key{p.RunID, p.DateMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range points {
		exists, err := s.exists(ctx, p.RunID, p.DateMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO metric_points (
			run_id, series_id, date_ms,
			rolling_mean, rolling_variance, rolling_volatility, ks_distance,
			z_mean, z_volatility, z_distribution
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.RunID, p.SeriesID, uint64(p.DateMs),
			p.RollingMean, p.RollingVariance, p.RollingVolatility, p.KSDistance,
			p.ZMean, p.ZVolatility, p.ZDistribution,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by date ASC.
func (s *MetricPointStore) GetByRunID(ctx context.Context, runID string) ([]*domain.MetricPoint, error) {
	query := `
		SELECT
			run_id, series_id, date_ms,
			rolling_mean, rolling_variance, rolling_volatility, ks_distance,
			z_mean, z_volatility, z_distribution
		FROM metric_points
		WHERE run_id = ?
		ORDER BY date_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run id: %w", err)
	}
	defer rows.Close()

	return scanMetricPoints(rows)
}

// GetByDateRange retrieves points for a run within [start, end] (inclusive).
func (s *MetricPointStore) GetByDateRange(ctx context.Context, runID string, start, end int64) ([]*domain.MetricPoint, error) {
	query := `
		SELECT
			run_id, series_id, date_ms,
			rolling_mean, rolling_variance, rolling_volatility, ks_distance,
			z_mean, z_volatility, z_distribution
		FROM metric_points
		WHERE run_id = ? AND date_ms >= ? AND date_ms <= ?
		ORDER BY date_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by date range: %w", err)
	}
	defer rows.Close()

	return scanMetricPoints(rows)
}

// exists checks if a point with the given key exists.
func (s *MetricPointStore) exists(ctx context.Context, runID string, dateMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM metric_points
		WHERE run_id = ? AND date_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, uint64(dateMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanMetricPoints scans multiple rows.
func scanMetricPoints(rows chRows) ([]*domain.MetricPoint, error) {
	var points []*domain.MetricPoint

	for rows.Next() {
		var p domain.MetricPoint
		var dateMs uint64

		err := rows.Scan(
			&p.RunID, &p.SeriesID, &dateMs,
			&p.RollingMean, &p.RollingVariance, &p.RollingVolatility, &p.KSDistance,
			&p.ZMean, &p.ZVolatility, &p.ZDistribution,
		)
		if err != nil {
			return nil, fmt.Errorf("scan metric point row: %w", err)
		}

		p.DateMs = int64(dateMs)
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metric point rows: %w", err)
	}

	return points, nil
}
