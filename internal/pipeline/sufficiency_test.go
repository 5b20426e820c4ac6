package pipeline

import (
	"context"
	"testing"
	"time"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage/memory"
)

func insertWeekdayBars(t *testing.T, store *memory.PriceBarStore, seriesID string, start, end time.Time) int {
	t.Helper()
	var bars []*domain.PriceBar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		bars = append(bars, &domain.PriceBar{
			SeriesID: seriesID,
			DateMs:   d.UnixMilli(),
			Close:    100.0,
		})
	}
	if err := store.InsertBulk(context.Background(), bars); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
	return len(bars)
}

func TestSufficiencyChecker_AllPass(t *testing.T) {
	barStore := memory.NewPriceBarStore()
	insertWeekdayBars(t, barStore, "nifty50",
		time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.June, 30, 0, 0, 0, 0, time.UTC))

	checker := NewSufficiencyChecker(barStore)
	series := []*domain.IndexSeries{{SeriesID: "nifty50"}}

	result, err := checker.Check(context.Background(), series, domain.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if !result.AllPass {
		t.Errorf("expected all checks to pass: %+v", result.Checks)
	}
	if len(result.Checks) != 3 {
		t.Fatalf("expected 3 checks per series, got %d", len(result.Checks))
	}
	for _, c := range result.Checks {
		if c.SeriesID != "nifty50" {
			t.Errorf("check missing series ID: %+v", c)
		}
		if !c.Pass {
			t.Errorf("check failed: %+v", c)
		}
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected integrity errors: %v", result.Errors)
	}
}

func TestSufficiencyChecker_TooFewBars(t *testing.T) {
	barStore := memory.NewPriceBarStore()
	insertWeekdayBars(t, barStore, "thin",
		time.Date(2020, time.March, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.March, 13, 0, 0, 0, 0, time.UTC))

	checker := NewSufficiencyChecker(barStore)
	result, err := checker.Check(context.Background(),
		[]*domain.IndexSeries{{SeriesID: "thin"}}, domain.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if result.AllPass {
		t.Error("ten bars cannot satisfy a 21-day window study")
	}
	// Bar count and baseline checks must both fail
	if result.Checks[0].Pass {
		t.Errorf("bar count check must fail: %+v", result.Checks[0])
	}
	if result.Checks[1].Pass {
		t.Errorf("baseline sample check must fail: %+v", result.Checks[1])
	}
}

func TestSufficiencyChecker_EmptyCrisisWindow(t *testing.T) {
	barStore := memory.NewPriceBarStore()
	// History ends before the crisis window opens
	insertWeekdayBars(t, barStore, "stale",
		time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.January, 31, 0, 0, 0, 0, time.UTC))

	checker := NewSufficiencyChecker(barStore)
	result, err := checker.Check(context.Background(),
		[]*domain.IndexSeries{{SeriesID: "stale"}}, domain.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	if result.AllPass {
		t.Error("expected crisis coverage to fail")
	}
	if result.Checks[2].Pass {
		t.Errorf("crisis coverage check must fail: %+v", result.Checks[2])
	}
}

func TestSufficiencyChecker_MultipleSeries(t *testing.T) {
	barStore := memory.NewPriceBarStore()
	insertWeekdayBars(t, barStore, "good",
		time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.June, 30, 0, 0, 0, 0, time.UTC))
	insertWeekdayBars(t, barStore, "thin",
		time.Date(2020, time.March, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2020, time.March, 6, 0, 0, 0, 0, time.UTC))

	checker := NewSufficiencyChecker(barStore)
	result, err := checker.Check(context.Background(), []*domain.IndexSeries{
		{SeriesID: "good"}, {SeriesID: "thin"},
	}, domain.DefaultAnalysisConfig())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}

	// One bad series sinks the whole study
	if result.AllPass {
		t.Error("expected combined result to fail")
	}
	if len(result.Checks) != 6 {
		t.Errorf("expected 3 checks per series, got %d total", len(result.Checks))
	}
}

func TestToDataQuality(t *testing.T) {
	result := &SufficiencyResult{
		Checks: []SufficiencyCheck{
			{SeriesID: "a", Name: "Total bars", Threshold: ">= 22", Actual: "652", Pass: true},
			{SeriesID: "a", Name: "Baseline sample", Threshold: ">= 60", Actual: "12", Pass: false},
		},
		AllPass: false,
		Errors:  []string{"series a: 1 duplicate bar dates"},
	}

	section := toDataQuality(result)
	if section.AllChecksPassed {
		t.Error("AllChecksPassed must mirror the result")
	}
	if len(section.SufficiencyChecks) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(section.SufficiencyChecks))
	}
	if section.SufficiencyChecks[1].Pass || section.SufficiencyChecks[1].Actual != "12" {
		t.Errorf("row: %+v", section.SufficiencyChecks[1])
	}
	if len(section.IntegrityErrors) != 1 {
		t.Errorf("integrity errors: %v", section.IntegrityErrors)
	}
}
