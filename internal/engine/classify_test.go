package engine

import (
	"testing"
	"time"

	"structural-break-lab/internal/domain"
)

func crisisSeries(mean, volatility, ks []float64) *domain.NormalizedMetricSeries {
	n := len(mean)
	s := &domain.NormalizedMetricSeries{
		DatesMs:    make([]int64, n),
		Mean:       mean,
		Volatility: volatility,
		KSDistance: ks,
	}
	for i := range s.DatesMs {
		s.DatesMs[i] = domain.DateMs(2020, time.March, 1+i)
	}
	return s
}

func TestClassifyBreakdown_BreachOrdering(t *testing.T) {
	// Volatility breaches on day 1, distribution on day 3, mean never
	crisis := crisisSeries(
		[]float64{0.5, 1.0, 1.5, 1.2, 0.8},
		[]float64{3.0, 4.0, 5.0, 4.5, 3.5},
		[]float64{0.5, 1.0, 2.5, 3.0, 2.0},
	)

	result := ClassifyBreakdown(crisis, 2.0)

	wantRanking := []domain.Metric{domain.MetricVariance, domain.MetricDistribution, domain.MetricMean}
	for i, m := range wantRanking {
		if result.Ranking[i] != m {
			t.Fatalf("Ranking[%d] = %s, want %s (full: %v)", i, result.Ranking[i], m, result.Ranking)
		}
	}
	if result.BreaksFirst() != domain.MetricVariance {
		t.Errorf("Expected variance to break first, got %s", result.BreaksFirst())
	}

	variance, _ := result.Breach(domain.MetricVariance)
	if !variance.Breached || variance.FirstBreachMs != crisis.DatesMs[0] {
		t.Errorf("Variance breach: %+v", variance)
	}
	if variance.DaysAboveThreshold != 5 {
		t.Errorf("Expected 5 days above threshold, got %d", variance.DaysAboveThreshold)
	}
	if variance.PeakAbsZ != 5.0 || variance.PeakMs != crisis.DatesMs[2] {
		t.Errorf("Variance peak: %+v", variance)
	}

	distribution, _ := result.Breach(domain.MetricDistribution)
	if distribution.FirstBreachMs != crisis.DatesMs[2] {
		t.Errorf("Distribution first breach at %d, want %d", distribution.FirstBreachMs, crisis.DatesMs[2])
	}
	if distribution.DaysAboveThreshold != 3 {
		t.Errorf("Expected 3 days above threshold, got %d", distribution.DaysAboveThreshold)
	}

	mean, _ := result.Breach(domain.MetricMean)
	if mean.Breached || mean.FirstBreachMs != 0 {
		t.Errorf("Mean must not breach: %+v", mean)
	}
	if mean.PeakAbsZ != 1.5 {
		t.Errorf("No-breach peak must still be recorded, got %g", mean.PeakAbsZ)
	}
}

func TestClassifyBreakdown_NegativeZBreaches(t *testing.T) {
	// Threshold applies to |z|, so deep negative deviations breach too
	crisis := crisisSeries(
		[]float64{-3.0, -2.5, -1.0},
		[]float64{0.5, 0.6, 0.7},
		[]float64{0.1, 0.2, 0.3},
	)

	result := ClassifyBreakdown(crisis, 2.0)

	mean, _ := result.Breach(domain.MetricMean)
	if !mean.Breached || mean.FirstBreachMs != crisis.DatesMs[0] {
		t.Errorf("Negative z must breach: %+v", mean)
	}
	if mean.PeakAbsZ != 3.0 {
		t.Errorf("Peak |z| must be 3.0, got %g", mean.PeakAbsZ)
	}
	if result.BreaksFirst() != domain.MetricMean {
		t.Errorf("Expected mean first, got %s", result.BreaksFirst())
	}
}

func TestClassifyBreakdown_BreachDateTieBreaksOnPeak(t *testing.T) {
	// Mean and volatility both breach on day 1; volatility peaks higher
	crisis := crisisSeries(
		[]float64{2.5, 2.0, 1.5},
		[]float64{3.0, 4.0, 3.5},
		[]float64{0.5, 0.5, 0.5},
	)

	result := ClassifyBreakdown(crisis, 2.0)

	if result.Ranking[0] != domain.MetricVariance || result.Ranking[1] != domain.MetricMean {
		t.Errorf("Tie on breach date must order by peak |z| desc, got %v", result.Ranking)
	}
}

func TestClassifyBreakdown_NoBreachOrdersByPeak(t *testing.T) {
	// Nothing breaches; ranking falls back to peak |z| descending
	crisis := crisisSeries(
		[]float64{0.5, 0.4, 0.3},
		[]float64{1.0, 1.2, 1.1},
		[]float64{1.8, 1.9, 1.7},
	)

	result := ClassifyBreakdown(crisis, 2.0)

	want := []domain.Metric{domain.MetricDistribution, domain.MetricVariance, domain.MetricMean}
	for i, m := range want {
		if result.Ranking[i] != m {
			t.Fatalf("Ranking[%d] = %s, want %s", i, result.Ranking[i], m)
		}
	}
	for _, b := range result.Breaches {
		if b.Breached {
			t.Errorf("Metric %s must not breach", b.Metric)
		}
	}
}

func TestClassifyBreakdown_ExactTiesKeepCanonicalOrder(t *testing.T) {
	// Identical channels: canonical metric order decides
	flat := []float64{1.0, 1.0, 1.0}
	crisis := crisisSeries(
		append([]float64(nil), flat...),
		append([]float64(nil), flat...),
		append([]float64(nil), flat...),
	)

	result := ClassifyBreakdown(crisis, 2.0)

	for i, m := range domain.AllMetrics {
		if result.Ranking[i] != m {
			t.Fatalf("Exact tie must keep canonical order, got %v", result.Ranking)
		}
	}
}

func TestClassifyBreakdown_Deterministic(t *testing.T) {
	crisis := crisisSeries(
		[]float64{0.5, 2.1, 1.5, 2.2},
		[]float64{3.0, 4.0, 5.0, 4.5},
		[]float64{0.5, 1.0, 2.5, 3.0},
	)

	first := ClassifyBreakdown(crisis, 2.0)
	for i := 0; i < 10; i++ {
		again := ClassifyBreakdown(crisis, 2.0)
		for j := range first.Ranking {
			if again.Ranking[j] != first.Ranking[j] {
				t.Fatalf("Run %d produced different ranking: %v vs %v", i, again.Ranking, first.Ranking)
			}
		}
	}
}

func TestClassifyBreakdown_ThresholdIsInclusive(t *testing.T) {
	crisis := crisisSeries(
		[]float64{2.0, 0.0, 0.0}, // exactly at threshold
		[]float64{1.99, 0.0, 0.0},
		[]float64{0.0, 0.0, 0.0},
	)

	result := ClassifyBreakdown(crisis, 2.0)

	mean, _ := result.Breach(domain.MetricMean)
	if !mean.Breached {
		t.Error("|z| equal to the threshold must count as a breach")
	}
	variance, _ := result.Breach(domain.MetricVariance)
	if variance.Breached {
		t.Error("|z| just below the threshold must not breach")
	}
}
