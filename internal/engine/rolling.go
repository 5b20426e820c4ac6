package engine

import (
	"fmt"
	"math"
	"sort"

	"structural-break-lab/internal/domain"
)

// rollingAccumulator maintains a fixed-size trailing window with running
// sum and sum of squares, giving O(1) mean and variance per slide. The
// buffer is allocated once and reused across the whole sweep.
type rollingAccumulator struct {
	capacity int
	values   []float64
	idx      int
	count    int
	sum      float64
	sumSq    float64
}

func newRollingAccumulator(capacity int) *rollingAccumulator {
	return &rollingAccumulator{
		capacity: capacity,
		values:   make([]float64, capacity),
	}
}

// add pushes a value, evicting the oldest once the window is full.
func (r *rollingAccumulator) add(v float64) {
	if r.count == r.capacity {
		old := r.values[r.idx]
		r.sum -= old
		r.sumSq -= old * old
	} else {
		r.count++
	}
	r.values[r.idx] = v
	r.sum += v
	r.sumSq += v * v
	r.idx = (r.idx + 1) % r.capacity
}

func (r *rollingAccumulator) full() bool {
	return r.count == r.capacity
}

func (r *rollingAccumulator) mean() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

// variance returns the sample variance (n-1 denominator), clamped at
// zero against floating-point cancellation on near-constant windows.
func (r *rollingAccumulator) variance() float64 {
	if r.count < 2 {
		return 0
	}
	n := float64(r.count)
	v := (r.sumSq - r.sum*r.sum/n) / (n - 1)
	if v < 0 {
		v = 0
	}
	return v
}

// window copies the current window contents into dst (oldest first is
// not guaranteed; callers sort anyway) and returns the filled slice.
func (r *rollingAccumulator) window(dst []float64) []float64 {
	dst = dst[:r.count]
	copy(dst, r.values[:r.count])
	return dst
}

// ComputeRollingMetrics sweeps a W-length window over the return series
// and computes, per end date, the rolling mean, sample variance (and
// volatility), and the two-sample KS distance between the window and
// the baseline distribution. Mean and variance are maintained
// incrementally; the KS distance has no incremental form and is
// recomputed per window against the pre-sorted baseline, which
// dominates cost at O(W log W) per step.
//
// Output covers source indices W-1..n-1, so its length is n-W+1 and its
// first date is the source date at index W-1. Fails with
// ErrWindowTooLarge when W exceeds the series length or is below 2 (no
// sample variance exists for a single observation).
func ComputeRollingMetrics(returns []domain.ReturnPoint, baseline *domain.BaselineDistribution, window int) (*domain.RollingMetricSeries, error) {
	n := len(returns)
	if window < 2 {
		return nil, fmt.Errorf("%w: window %d, need at least 2", ErrWindowTooLarge, window)
	}
	if window > n {
		return nil, fmt.Errorf("%w: window %d, series has %d returns", ErrWindowTooLarge, window, n)
	}
	if baseline == nil || len(baseline.SortedValues) == 0 {
		return nil, fmt.Errorf("%w: baseline distribution is empty", ErrInsufficientBaselineSample)
	}

	out := &domain.RollingMetricSeries{
		Window:     window,
		DatesMs:    make([]int64, 0, n-window+1),
		Mean:       make([]float64, 0, n-window+1),
		Variance:   make([]float64, 0, n-window+1),
		Volatility: make([]float64, 0, n-window+1),
		KSDistance: make([]float64, 0, n-window+1),
	}

	acc := newRollingAccumulator(window)
	buf := make([]float64, window)
	for _, r := range returns {
		acc.add(r.Value)
		if !acc.full() {
			continue
		}
		variance := acc.variance()
		w := acc.window(buf)
		sort.Float64s(w)

		out.DatesMs = append(out.DatesMs, r.DateMs)
		out.Mean = append(out.Mean, acc.mean())
		out.Variance = append(out.Variance, variance)
		out.Volatility = append(out.Volatility, math.Sqrt(variance))
		out.KSDistance = append(out.KSDistance, ksDistanceSorted(w, baseline.SortedValues))
	}
	return out, nil
}
