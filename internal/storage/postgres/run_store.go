package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (
			run_id, series_id,
			window_len, threshold, min_baseline_sample, variance_epsilon,
			baseline_start_ms, baseline_end_ms, crisis_start_ms, crisis_end_ms,
			bar_count, config_digest, data_digest,
			breaks_first, ranking, created_at
		) VALUES (
			$1, $2,
			$3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13,
			$14, $15, $16
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.SeriesID,
		r.Window, r.Threshold, r.MinBaselineSample, r.VarianceEpsilon,
		r.BaselineStartMs, r.BaselineEndMs, r.CrisisStartMs, r.CrisisEndMs,
		r.BarCount, r.ConfigDigest, r.DataDigest,
		r.BreaksFirst, r.Ranking, r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert analysis run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.AnalysisRun, error) {
	query := `
		SELECT
			run_id, series_id,
			window_len, threshold, min_baseline_sample, variance_epsilon,
			baseline_start_ms, baseline_end_ms, crisis_start_ms, crisis_end_ms,
			bar_count, config_digest, data_digest,
			breaks_first, ranking, created_at
		FROM analysis_runs
		WHERE run_id = $1
	`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanAnalysisRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get analysis run by id: %w", err)
	}
	return r, nil
}

// GetBySeriesID retrieves all runs for a series, ordered by created_at ASC.
func (s *RunStore) GetBySeriesID(ctx context.Context, seriesID string) ([]*domain.AnalysisRun, error) {
	query := `
		SELECT
			run_id, series_id,
			window_len, threshold, min_baseline_sample, variance_epsilon,
			baseline_start_ms, baseline_end_ms, crisis_start_ms, crisis_end_ms,
			bar_count, config_digest, data_digest,
			breaks_first, ranking, created_at
		FROM analysis_runs
		WHERE series_id = $1
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, seriesID)
	if err != nil {
		return nil, fmt.Errorf("get analysis runs by series id: %w", err)
	}
	defer rows.Close()

	return scanAnalysisRuns(rows)
}

// GetAll retrieves all runs, ordered by created_at ASC, run_id ASC.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.AnalysisRun, error) {
	query := `
		SELECT
			run_id, series_id,
			window_len, threshold, min_baseline_sample, variance_epsilon,
			baseline_start_ms, baseline_end_ms, crisis_start_ms, crisis_end_ms,
			bar_count, config_digest, data_digest,
			breaks_first, ranking, created_at
		FROM analysis_runs
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all analysis runs: %w", err)
	}
	defer rows.Close()

	return scanAnalysisRuns(rows)
}

// scanAnalysisRun scans a single row into an AnalysisRun.
func scanAnalysisRun(row pgx.Row) (*domain.AnalysisRun, error) {
	var r domain.AnalysisRun

	err := row.Scan(
		&r.RunID, &r.SeriesID,
		&r.Window, &r.Threshold, &r.MinBaselineSample, &r.VarianceEpsilon,
		&r.BaselineStartMs, &r.BaselineEndMs, &r.CrisisStartMs, &r.CrisisEndMs,
		&r.BarCount, &r.ConfigDigest, &r.DataDigest,
		&r.BreaksFirst, &r.Ranking, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

// scanAnalysisRuns scans multiple rows into a slice of AnalysisRun.
func scanAnalysisRuns(rows pgx.Rows) ([]*domain.AnalysisRun, error) {
	var runs []*domain.AnalysisRun

	for rows.Next() {
		var r domain.AnalysisRun

		err := rows.Scan(
			&r.RunID, &r.SeriesID,
			&r.Window, &r.Threshold, &r.MinBaselineSample, &r.VarianceEpsilon,
			&r.BaselineStartMs, &r.BaselineEndMs, &r.CrisisStartMs, &r.CrisisEndMs,
			&r.BarCount, &r.ConfigDigest, &r.DataDigest,
			&r.BreaksFirst, &r.Ranking, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan analysis run row: %w", err)
		}

		runs = append(runs, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate analysis run rows: %w", err)
	}

	return runs, nil
}
