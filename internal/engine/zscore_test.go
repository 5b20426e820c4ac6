package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"structural-break-lab/internal/domain"
)

func testRollingSeries(mean, volatility, ks []float64) *domain.RollingMetricSeries {
	n := len(mean)
	s := &domain.RollingMetricSeries{
		Window:     2,
		DatesMs:    make([]int64, n),
		Mean:       mean,
		Variance:   make([]float64, n),
		Volatility: volatility,
		KSDistance: ks,
	}
	for i := range s.DatesMs {
		s.DatesMs[i] = domain.DateMs(2019, time.June, 1+i)
		s.Variance[i] = volatility[i] * volatility[i]
	}
	return s
}

func TestNormalize_BaselinePortionIsStandardized(t *testing.T) {
	rolling := testRollingSeries(
		[]float64{0.001, 0.003, -0.002, 0.004, 0.050, 0.060},
		[]float64{0.010, 0.012, 0.011, 0.013, 0.040, 0.045},
		[]float64{0.10, 0.15, 0.12, 0.18, 0.60, 0.70},
	)
	// Baseline covers the first four dates only
	baseline := domain.DateInterval{
		StartMs: rolling.DatesMs[0],
		EndMs:   rolling.DatesMs[3],
	}

	norm, err := Normalize(rolling, baseline, 1e-12)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if norm.Len() != rolling.Len() {
		t.Fatalf("Normalization must keep every date, got %d of %d", norm.Len(), rolling.Len())
	}

	// The baseline-interval portion of each channel must have mean ~0
	// and sample stddev ~1 after standardization
	for _, m := range domain.AllMetrics {
		zs := norm.Channel(m)[:4]
		mu := computeMean(zs)
		sigma := computeStddev(zs, mu)
		if math.Abs(mu) > 1e-10 {
			t.Errorf("Channel %s: baseline z-mean %g, want ~0", m, mu)
		}
		if math.Abs(sigma-1) > 1e-10 {
			t.Errorf("Channel %s: baseline z-stddev %g, want ~1", m, sigma)
		}
	}

	// Out-of-baseline dates are scored against the same reference, so the
	// elevated tail must land far above the baseline portion
	if norm.Volatility[4] < 2 {
		t.Errorf("Expected elevated volatility z-score, got %g", norm.Volatility[4])
	}
}

func TestNormalize_VarianceChannelUsesVolatility(t *testing.T) {
	rolling := testRollingSeries(
		[]float64{0.001, 0.002, 0.003, 0.004},
		[]float64{0.010, 0.014, 0.012, 0.016},
		[]float64{0.10, 0.20, 0.15, 0.25},
	)
	baseline := domain.DateInterval{StartMs: rolling.DatesMs[0], EndMs: rolling.DatesMs[3]}

	norm, err := Normalize(rolling, baseline, 1e-12)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	// Standardizing the volatility values directly must reproduce the
	// variance channel's z-scores
	mu := computeMean(rolling.Volatility)
	sigma := computeStddev(rolling.Volatility, mu)
	for i, v := range rolling.Volatility {
		want := (v - mu) / sigma
		if math.Abs(norm.Volatility[i]-want) > 1e-12 {
			t.Errorf("Point %d: z %g, want %g", i, norm.Volatility[i], want)
		}
	}
}

func TestNormalize_DegenerateBaselineVariance(t *testing.T) {
	// Constant KS channel over the baseline leaves no scale
	rolling := testRollingSeries(
		[]float64{0.001, 0.002, 0.003},
		[]float64{0.010, 0.012, 0.011},
		[]float64{0.10, 0.10, 0.10},
	)
	baseline := domain.DateInterval{StartMs: rolling.DatesMs[0], EndMs: rolling.DatesMs[2]}

	_, err := Normalize(rolling, baseline, 1e-12)
	if !errors.Is(err, ErrDegenerateBaselineVariance) {
		t.Errorf("Expected ErrDegenerateBaselineVariance, got %v", err)
	}
}

func TestNormalize_BaselineCoversTooFewPoints(t *testing.T) {
	rolling := testRollingSeries(
		[]float64{0.001, 0.002, 0.003},
		[]float64{0.010, 0.012, 0.011},
		[]float64{0.10, 0.15, 0.12},
	)
	// Interval touches a single rolling date
	baseline := domain.DateInterval{StartMs: rolling.DatesMs[0], EndMs: rolling.DatesMs[0]}

	_, err := Normalize(rolling, baseline, 1e-12)
	if !errors.Is(err, ErrInsufficientBaselineSample) {
		t.Errorf("Expected ErrInsufficientBaselineSample, got %v", err)
	}
}
