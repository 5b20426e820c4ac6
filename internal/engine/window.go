package engine

import (
	"fmt"

	"structural-break-lab/internal/domain"
)

// ExtractWindow slices all three normalized channels to the dates
// inside the closed interval, preserving alignment. The result holds
// copies; the input stays untouched.
//
// Fails with ErrEmptyCrisisWindow when the interval intersects no dates
// of the series.
func ExtractWindow(norm *domain.NormalizedMetricSeries, interval domain.DateInterval) (*domain.NormalizedMetricSeries, error) {
	lo, hi := -1, -1
	for i, ms := range norm.DatesMs {
		if !interval.Contains(ms) {
			continue
		}
		if lo == -1 {
			lo = i
		}
		hi = i
	}
	if lo == -1 {
		span := "empty series"
		if n := norm.Len(); n > 0 {
			span = domain.DateInterval{StartMs: norm.DatesMs[0], EndMs: norm.DatesMs[n-1]}.String()
		}
		return nil, fmt.Errorf("%w: interval %s intersects no dates (series spans %s)",
			ErrEmptyCrisisWindow, interval, span)
	}

	return &domain.NormalizedMetricSeries{
		DatesMs:    append([]int64(nil), norm.DatesMs[lo:hi+1]...),
		Mean:       append([]float64(nil), norm.Mean[lo:hi+1]...),
		Volatility: append([]float64(nil), norm.Volatility[lo:hi+1]...),
		KSDistance: append([]float64(nil), norm.KSDistance[lo:hi+1]...),
	}, nil
}
