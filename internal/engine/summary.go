package engine

import (
	"fmt"

	"structural-break-lab/internal/domain"
)

// BuildSummary reduces one series' outputs to a comparison-table row:
// per-channel peaks (full series and crisis window separately), breach
// metadata, the rank ordering, and descriptive statistics of the
// underlying returns. Pure reduction; no new statistics beyond it.
func BuildSummary(seriesID string, returns []domain.ReturnPoint, norm, crisis *domain.NormalizedMetricSeries, result *domain.BreakdownResult) domain.SummaryRecord {
	rec := domain.SummaryRecord{
		SeriesID:    seriesID,
		Threshold:   result.Threshold,
		Ranking:     append([]domain.Metric(nil), result.Ranking...),
		BreaksFirst: result.BreaksFirst(),
	}

	values := make([]float64, len(returns))
	for i, r := range returns {
		values[i] = r.Value
	}
	rec.ReturnMean = computeMean(values)
	rec.ReturnStddev = computeStddev(values, rec.ReturnMean)
	rec.ReturnSkewness = computeSkewness(values)
	rec.ReturnKurtosis = computeExcessKurtosis(values)

	rankOf := make(map[domain.Metric]int, len(result.Ranking))
	for i, m := range result.Ranking {
		rankOf[m] = i + 1
	}

	for _, m := range domain.AllMetrics {
		peakFull, _ := maxAbs(norm.Channel(m))
		breach, _ := result.Breach(m)
		rec.Metrics = append(rec.Metrics, domain.MetricSummary{
			Metric:             m,
			PeakAbsZFull:       peakFull,
			PeakAbsZCrisis:     breach.PeakAbsZ,
			PeakMsCrisis:       breach.PeakMs,
			MeanZCrisis:        computeMean(crisis.Channel(m)),
			Breached:           breach.Breached,
			FirstBreachMs:      breach.FirstBreachMs,
			DaysAboveThreshold: breach.DaysAboveThreshold,
			Rank:               rankOf[m],
		})
	}
	return rec
}

// BuildComparisonTable merges summary rows across series, preserving
// input order. Fails with ErrDuplicateSeriesIdentifier on a SeriesID
// collision; nothing else can fail in a pure merge.
func BuildComparisonTable(records []domain.SummaryRecord) (*domain.ComparisonTable, error) {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if _, ok := seen[r.SeriesID]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSeriesIdentifier, r.SeriesID)
		}
		seen[r.SeriesID] = struct{}{}
	}
	return &domain.ComparisonTable{
		Rows: append([]domain.SummaryRecord(nil), records...),
	}, nil
}
