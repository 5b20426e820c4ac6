package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"structural-break-lab/internal/domain"
)

// Result bundles every product of one analysis run. Each stage consumes
// only earlier stages' outputs; nothing here is mutated after Analyze
// returns.
type Result struct {
	SeriesID   string
	Config     domain.AnalysisConfig
	Returns    []domain.ReturnPoint
	Baseline   *domain.BaselineDistribution
	Rolling    *domain.RollingMetricSeries
	Normalized *domain.NormalizedMetricSeries
	Crisis     *domain.NormalizedMetricSeries
	Breakdown  *domain.BreakdownResult
	Summary    domain.SummaryRecord
}

// Analyze runs the full autopsy for one series: log returns, baseline
// extraction, rolling statistics, baseline-conditioned normalization,
// crisis-window slice, breach classification, summary reduction.
// Synchronous and deterministic; callers may analyze independent series
// concurrently.
func Analyze(cfg domain.AnalysisConfig, seriesID string, bars []domain.PriceBar) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	returns, err := ComputeLogReturns(bars)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", seriesID, err)
	}
	baseline, err := ExtractBaseline(returns, cfg.Baseline, cfg.MinBaselineSample)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", seriesID, err)
	}
	rolling, err := ComputeRollingMetrics(returns, baseline, cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", seriesID, err)
	}
	normalized, err := Normalize(rolling, cfg.Baseline, cfg.VarianceEpsilon)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", seriesID, err)
	}
	crisis, err := ExtractWindow(normalized, cfg.Crisis)
	if err != nil {
		return nil, fmt.Errorf("series %s: %w", seriesID, err)
	}
	breakdown := ClassifyBreakdown(crisis, cfg.Threshold)

	return &Result{
		SeriesID:   seriesID,
		Config:     cfg,
		Returns:    returns,
		Baseline:   baseline,
		Rolling:    rolling,
		Normalized: normalized,
		Crisis:     crisis,
		Breakdown:  breakdown,
		Summary:    BuildSummary(seriesID, returns, normalized, crisis, breakdown),
	}, nil
}

// Digest fingerprints the computed outputs for reproducibility checks:
// SHA-256 over every normalized row plus the ranking, truncated to 16
// hex characters. Identical inputs and configuration must reproduce an
// identical digest.
func (r *Result) Digest() string {
	h := sha256.New()
	h.Write([]byte("SERIES\n" + r.SeriesID + "\n"))

	h.Write([]byte("POINTS\n"))
	var row strings.Builder
	for i, ms := range r.Normalized.DatesMs {
		row.Reset()
		fmt.Fprintf(&row, "%d|%.9g|%.9g|%.9g\n",
			ms, r.Normalized.Mean[i], r.Normalized.Volatility[i], r.Normalized.KSDistance[i])
		h.Write([]byte(row.String()))
	}

	h.Write([]byte("RANKING\n" + domain.JoinMetrics(r.Breakdown.Ranking) + "\n"))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// MetricPoints flattens the rolling and normalized channels into
// per-day rows for storage and CSV export. RunID is stamped by the
// caller once it is known.
func (r *Result) MetricPoints() []*domain.MetricPoint {
	points := make([]*domain.MetricPoint, 0, r.Rolling.Len())
	for i, ms := range r.Rolling.DatesMs {
		points = append(points, &domain.MetricPoint{
			SeriesID:          r.SeriesID,
			DateMs:            ms,
			RollingMean:       r.Rolling.Mean[i],
			RollingVariance:   r.Rolling.Variance[i],
			RollingVolatility: r.Rolling.Volatility[i],
			KSDistance:        r.Rolling.KSDistance[i],
			ZMean:             r.Normalized.Mean[i],
			ZVolatility:       r.Normalized.Volatility[i],
			ZDistribution:     r.Normalized.KSDistance[i],
		})
	}
	return points
}
