package engine

import (
	"fmt"

	"structural-break-lab/internal/domain"
)

// Normalize standardizes each rolling channel by that channel's own
// baseline-period mean and standard deviation (a second-order
// reference: the baseline statistics of the rolling series, not of raw
// returns). Every date of the input is normalized; only the reference
// moments come from the baseline interval.
//
// Fails with ErrInsufficientBaselineSample when the baseline interval
// covers fewer than two rolling observations, and with
// ErrDegenerateBaselineVariance when a channel's baseline stddev is at
// or below epsilon. Division by a near-zero scale is an error here, not
// an infinity downstream.
func Normalize(metrics *domain.RollingMetricSeries, baseline domain.DateInterval, epsilon float64) (*domain.NormalizedMetricSeries, error) {
	if epsilon <= 0 {
		epsilon = domain.DefaultVarianceEpsilon
	}

	var idx []int
	for i, ms := range metrics.DatesMs {
		if baseline.Contains(ms) {
			idx = append(idx, i)
		}
	}
	if len(idx) < 2 {
		return nil, fmt.Errorf("%w: baseline interval %s covers %d rolling observations, need at least 2",
			ErrInsufficientBaselineSample, baseline, len(idx))
	}

	out := &domain.NormalizedMetricSeries{
		DatesMs: append([]int64(nil), metrics.DatesMs...),
	}
	sub := make([]float64, len(idx))
	for _, m := range domain.AllMetrics {
		values := metrics.Channel(m)
		for i, j := range idx {
			sub[i] = values[j]
		}
		mu := computeMean(sub)
		sigma := computeStddev(sub, mu)
		if sigma <= epsilon {
			return nil, fmt.Errorf("%w: %s channel stddev %g over baseline %s (epsilon %g)",
				ErrDegenerateBaselineVariance, m, sigma, baseline, epsilon)
		}

		z := make([]float64, len(values))
		for i, v := range values {
			z[i] = (v - mu) / sigma
		}
		switch m {
		case domain.MetricMean:
			out.Mean = z
		case domain.MetricVariance:
			out.Volatility = z
		case domain.MetricDistribution:
			out.KSDistance = z
		}
	}
	return out, nil
}
