package postgres

import (
	"context"
	"fmt"
	"sort"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
// One SummaryRecord is persisted as one row per metric channel; the
// record-level fields are denormalized onto every row and the ranking
// is reassembled from the rank column on read.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a summary record. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(ctx context.Context, rec *domain.SummaryRecord) error {
	if rec == nil || len(rec.Metrics) == 0 {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO summary_records (
			run_id, series_id, metric, threshold,
			return_mean, return_stddev, return_skewness, return_kurtosis,
			peak_abs_z_full, peak_abs_z_crisis, peak_ms_crisis, mean_z_crisis,
			breached, first_breach_ms, days_above_threshold, rank
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8,
			$9, $10, $11, $12,
			$13, $14, $15, $16
		)
	`

	for _, m := range rec.Metrics {
		_, err := tx.Exec(ctx, query,
			rec.RunID, rec.SeriesID, string(m.Metric), rec.Threshold,
			rec.ReturnMean, rec.ReturnStddev, rec.ReturnSkewness, rec.ReturnKurtosis,
			m.PeakAbsZFull, m.PeakAbsZCrisis, m.PeakMsCrisis, m.MeanZCrisis,
			m.Breached, m.FirstBreachMs, m.DaysAboveThreshold, m.Rank,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert summary record row: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves the summary for a run. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(ctx context.Context, runID string) (*domain.SummaryRecord, error) {
	query := `
		SELECT
			run_id, series_id, metric, threshold,
			return_mean, return_stddev, return_skewness, return_kurtosis,
			peak_abs_z_full, peak_abs_z_crisis, peak_ms_crisis, mean_z_crisis,
			breached, first_breach_ms, days_above_threshold, rank
		FROM summary_records
		WHERE run_id = $1
		ORDER BY metric ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get summary records by run id: %w", err)
	}
	defer rows.Close()

	var rec *domain.SummaryRecord
	byMetric := make(map[domain.Metric]domain.MetricSummary)

	for rows.Next() {
		var (
			r      domain.SummaryRecord
			m      domain.MetricSummary
			metric string
		)

		err := rows.Scan(
			&r.RunID, &r.SeriesID, &metric, &r.Threshold,
			&r.ReturnMean, &r.ReturnStddev, &r.ReturnSkewness, &r.ReturnKurtosis,
			&m.PeakAbsZFull, &m.PeakAbsZCrisis, &m.PeakMsCrisis, &m.MeanZCrisis,
			&m.Breached, &m.FirstBreachMs, &m.DaysAboveThreshold, &m.Rank,
		)
		if err != nil {
			return nil, fmt.Errorf("scan summary record row: %w", err)
		}

		m.Metric = domain.Metric(metric)
		if rec == nil {
			rec = &r
		}
		byMetric[m.Metric] = m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summary record rows: %w", err)
	}

	if rec == nil {
		return nil, storage.ErrNotFound
	}

	// Canonical metric order for the per-channel slice, rank order for
	// the breaks-first ranking.
	for _, metric := range domain.AllMetrics {
		if m, ok := byMetric[metric]; ok {
			rec.Metrics = append(rec.Metrics, m)
		}
	}

	ranked := make([]domain.MetricSummary, len(rec.Metrics))
	copy(ranked, rec.Metrics)
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Rank < ranked[j].Rank })

	rec.Ranking = make([]domain.Metric, len(ranked))
	for i, m := range ranked {
		rec.Ranking[i] = m.Metric
	}
	if len(rec.Ranking) > 0 {
		rec.BreaksFirst = rec.Ranking[0]
	}

	return rec, nil
}
