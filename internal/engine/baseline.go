package engine

import (
	"fmt"
	"sort"

	"structural-break-lab/internal/domain"
)

// ExtractBaseline builds the reference distribution from all returns
// whose date falls inside the closed interval. The sorted copy is kept
// alongside the raw values so every KS sweep reuses it.
//
// Fails with ErrInsufficientBaselineSample when the interval yields
// fewer than minSample observations. An empty baseline is never
// acceptable, so minSample is floored at 1.
func ExtractBaseline(returns []domain.ReturnPoint, interval domain.DateInterval, minSample int) (*domain.BaselineDistribution, error) {
	if minSample < 1 {
		minSample = 1
	}

	values := make([]float64, 0, len(returns))
	for _, r := range returns {
		if interval.Contains(r.DateMs) {
			values = append(values, r.Value)
		}
	}
	if len(values) < minSample {
		return nil, fmt.Errorf("%w: interval %s yields %d observations, need %d",
			ErrInsufficientBaselineSample, interval, len(values), minSample)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean := computeMean(values)
	return &domain.BaselineDistribution{
		Interval:     interval,
		Values:       values,
		SortedValues: sorted,
		Mean:         mean,
		Stddev:       computeStddev(values, mean),
	}, nil
}
