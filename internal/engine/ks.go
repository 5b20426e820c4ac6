package engine

import "math"

// ksDistanceSorted computes the two-sample Kolmogorov-Smirnov statistic
// sup |F_a(x) - F_b(x)| between two pre-sorted samples, with both
// empirical CDFs taken right-continuous and the supremum evaluated over
// the union of both samples' values (convention documented in
// docs/METHODOLOGY.md). A merge walk advances each side past ties
// before comparing, so the cost is O(len(a)+len(b)).
//
// Once either CDF reaches 1 the gap can only shrink at later values, so
// the walk stops when one sample is exhausted.
func ksDistanceSorted(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	na := float64(len(a))
	nb := float64(len(b))

	var i, j int
	var d float64
	for i < len(a) && j < len(b) {
		x := a[i]
		if b[j] < x {
			x = b[j]
		}
		for i < len(a) && a[i] <= x {
			i++
		}
		for j < len(b) && b[j] <= x {
			j++
		}
		diff := math.Abs(float64(i)/na - float64(j)/nb)
		if diff > d {
			d = diff
		}
	}
	return d
}
