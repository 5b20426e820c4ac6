package memory

import (
	"context"
	"errors"
	"testing"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

func testSummaryRecord(runID string) *domain.SummaryRecord {
	return &domain.SummaryRecord{
		RunID:        runID,
		SeriesID:     "nifty50",
		Threshold:    2.0,
		ReturnMean:   0.0002,
		ReturnStddev: 0.011,
		Metrics: []domain.MetricSummary{
			{Metric: domain.MetricMean, PeakAbsZCrisis: 1.2, Rank: 3},
			{Metric: domain.MetricVariance, Breached: true, FirstBreachMs: 1000, PeakAbsZCrisis: 14.5, Rank: 1},
			{Metric: domain.MetricDistribution, Breached: true, FirstBreachMs: 2000, PeakAbsZCrisis: 4.1, Rank: 2},
		},
		Ranking:     []domain.Metric{domain.MetricVariance, domain.MetricDistribution, domain.MetricMean},
		BreaksFirst: domain.MetricVariance,
	}
}

func TestSummaryStore_InsertAndGet(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSummaryRecord("run-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if got.BreaksFirst != domain.MetricVariance {
		t.Errorf("Expected breaks-first variance, got %s", got.BreaksFirst)
	}
	if len(got.Metrics) != 3 || len(got.Ranking) != 3 {
		t.Errorf("Expected 3 metrics and 3 ranking entries, got %d and %d",
			len(got.Metrics), len(got.Ranking))
	}
}

func TestSummaryStore_Duplicate(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	if err := store.Insert(ctx, testSummaryRecord("run-1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, testSummaryRecord("run-1")); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestSummaryStore_NotFound(t *testing.T) {
	store := NewSummaryStore()

	_, err := store.GetByRunID(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestSummaryStore_DeepCopySemantics(t *testing.T) {
	store := NewSummaryStore()
	ctx := context.Background()

	rec := testSummaryRecord("run-1")
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Mutating the caller's slices must not affect the stored record
	rec.Metrics[0].PeakAbsZCrisis = 99.0
	rec.Ranking[0] = domain.MetricMean

	got, _ := store.GetByRunID(ctx, "run-1")
	if got.Metrics[0].PeakAbsZCrisis != 1.2 {
		t.Errorf("Stored metrics mutated via caller slice: %f", got.Metrics[0].PeakAbsZCrisis)
	}
	if got.Ranking[0] != domain.MetricVariance {
		t.Errorf("Stored ranking mutated via caller slice: %s", got.Ranking[0])
	}
}
