package engine

import (
	"math"
	"sort"

	"structural-break-lab/internal/domain"
)

// ClassifyBreakdown scans the crisis-window channels in date order and
// records, per metric, the first date with |z| >= threshold, the peak
// |z| with its date, and the count of days at or above the threshold.
// Metrics that never reach the threshold are marked no-breach, with the
// peak kept for diagnostics.
//
// The ranking orders metrics by first-breach date ascending; no-breach
// metrics come last. Ties on breach date, and no-breach metrics among
// themselves, order by peak |z| descending (the larger deviation broke
// more decisively). Remaining exact ties fall back to canonical metric
// order, keeping the sort total and reruns bit-identical.
func ClassifyBreakdown(crisis *domain.NormalizedMetricSeries, threshold float64) *domain.BreakdownResult {
	breaches := make([]domain.MetricBreach, 0, len(domain.AllMetrics))
	for _, m := range domain.AllMetrics {
		zs := crisis.Channel(m)
		b := domain.MetricBreach{Metric: m}
		for i, z := range zs {
			az := math.Abs(z)
			if az >= threshold {
				if !b.Breached {
					b.Breached = true
					b.FirstBreachMs = crisis.DatesMs[i]
				}
				b.DaysAboveThreshold++
			}
			if i == 0 || az > b.PeakAbsZ {
				b.PeakAbsZ = az
				b.PeakMs = crisis.DatesMs[i]
			}
		}
		breaches = append(breaches, b)
	}

	return &domain.BreakdownResult{
		Threshold: threshold,
		Breaches:  breaches,
		Ranking:   rankBreaches(breaches),
	}
}

// rankBreaches produces the breaks-first ordering. The input is in
// canonical metric order, which the stable sort preserves on exact
// ties.
func rankBreaches(breaches []domain.MetricBreach) []domain.Metric {
	idx := make([]int, len(breaches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		x, y := breaches[idx[a]], breaches[idx[b]]
		if x.Breached != y.Breached {
			return x.Breached
		}
		if x.Breached && x.FirstBreachMs != y.FirstBreachMs {
			return x.FirstBreachMs < y.FirstBreachMs
		}
		return x.PeakAbsZ > y.PeakAbsZ
	})

	ranking := make([]domain.Metric, len(idx))
	for i, j := range idx {
		ranking[i] = breaches[j].Metric
	}
	return ranking
}
