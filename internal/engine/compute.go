package engine

import "math"

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates sample standard deviation (n-1 denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0 // Need at least 2 samples for sample stddev
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computeSkewness calculates adjusted sample skewness
// (the pandas/Excel G1 convention with bias correction).
func computeSkewness(values []float64) float64 {
	n := float64(len(values))
	if n < 3 {
		return 0
	}
	mean := computeMean(values)
	s := computeStddev(values, mean)
	if s == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := (v - mean) / s
		sum += d * d * d
	}
	return sum * n / ((n - 1) * (n - 2))
}

// computeExcessKurtosis calculates bias-corrected excess kurtosis
// (the pandas G2 convention; 0 for a normal distribution).
func computeExcessKurtosis(values []float64) float64 {
	n := float64(len(values))
	if n < 4 {
		return 0
	}
	mean := computeMean(values)
	s := computeStddev(values, mean)
	if s == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := (v - mean) / s
		sum += d * d * d * d
	}
	g2 := sum * n * (n + 1) / ((n - 1) * (n - 2) * (n - 3))
	return g2 - 3*(n-1)*(n-1)/((n-2)*(n-3))
}

// maxAbs returns the largest absolute value and the index of its first
// occurrence. Returns (0, -1) for an empty slice.
func maxAbs(values []float64) (float64, int) {
	if len(values) == 0 {
		return 0, -1
	}
	peak := math.Abs(values[0])
	idx := 0
	for i := 1; i < len(values); i++ {
		if a := math.Abs(values[i]); a > peak {
			peak = a
			idx = i
		}
	}
	return peak, idx
}
