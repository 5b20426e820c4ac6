package feed

import (
	"context"
	"testing"
	"time"

	"structural-break-lab/internal/domain"
)

func TestGenerateBars_Shape(t *testing.T) {
	bars := GenerateBars(1001)

	if len(bars) != 652 {
		t.Fatalf("expected 652 weekday bars, got %d", len(bars))
	}
	if bars[0].DateMs != domain.DateMs(2018, time.January, 1) {
		t.Errorf("first bar at %s, want 2018-01-01", domain.FormatDateMs(bars[0].DateMs))
	}
	if bars[0].Close != 10000.0 {
		t.Errorf("genesis close = %g, want 10000", bars[0].Close)
	}
	if bars[len(bars)-1].DateMs != domain.DateMs(2020, time.June, 30) {
		t.Errorf("last bar at %s, want 2020-06-30", domain.FormatDateMs(bars[len(bars)-1].DateMs))
	}

	for i, b := range bars {
		wd := time.UnixMilli(b.DateMs).UTC().Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			t.Fatalf("bar %d falls on a weekend: %s", i, domain.FormatDateMs(b.DateMs))
		}
		if b.Close <= 0 {
			t.Fatalf("bar %d has non-positive close %g", i, b.Close)
		}
	}
}

func TestGenerateBars_Deterministic(t *testing.T) {
	a := GenerateBars(1001)
	b := GenerateBars(1001)

	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("bar %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestGenerateBars_SeedsDiffer(t *testing.T) {
	a := GenerateBars(1001)
	b := GenerateBars(110)

	same := true
	for i := 1; i < len(a); i++ {
		if a[i].Close != b[i].Close {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical histories")
	}
}

func TestSyntheticSource_Fetch(t *testing.T) {
	source := NewSyntheticSource(1001)
	if source.Name() != SourceSynthetic {
		t.Errorf("Name = %s, want %s", source.Name(), SourceSynthetic)
	}

	interval := domain.DateInterval{
		StartMs: domain.DateMs(2019, time.January, 1),
		EndMs:   domain.DateMs(2019, time.December, 31),
	}
	bars, err := source.Fetch(context.Background(), "^NSEI", interval)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(bars) == 0 {
		t.Fatal("expected bars inside the interval")
	}
	for _, b := range bars {
		if !interval.Contains(b.DateMs) {
			t.Fatalf("bar outside interval: %s", domain.FormatDateMs(b.DateMs))
		}
	}

	// Slicing must preserve the full-history values
	full := GenerateBars(1001)
	if bars[0].Close == 0 || bars[0].Close == full[0].Close {
		t.Errorf("sliced bars must carry mid-history prices, got %g", bars[0].Close)
	}
}
