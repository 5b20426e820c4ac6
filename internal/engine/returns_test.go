package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"structural-break-lab/internal/domain"
)

func testBars(closes ...float64) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = domain.PriceBar{
			SeriesID: "s1",
			DateMs:   domain.DateMs(2019, time.January, 1+i),
			Close:    c,
		}
	}
	return bars
}

func TestComputeLogReturns_Basic(t *testing.T) {
	bars := testBars(100, 110, 99)

	returns, err := ComputeLogReturns(bars)
	if err != nil {
		t.Fatalf("ComputeLogReturns failed: %v", err)
	}

	if len(returns) != 2 {
		t.Fatalf("Expected 2 returns from 3 bars, got %d", len(returns))
	}
	want0 := math.Log(110.0 / 100.0)
	if math.Abs(returns[0].Value-want0) > 1e-12 {
		t.Errorf("Expected return %g, got %g", want0, returns[0].Value)
	}
	if returns[0].DateMs != bars[1].DateMs {
		t.Errorf("Return must carry the interval end date")
	}
}

func TestComputeLogReturns_RoundTrip(t *testing.T) {
	// Summing log returns must recover the total log price change
	bars := testBars(100, 104, 97, 103, 108)

	returns, err := ComputeLogReturns(bars)
	if err != nil {
		t.Fatalf("ComputeLogReturns failed: %v", err)
	}

	sum := 0.0
	for _, r := range returns {
		sum += r.Value
	}
	want := math.Log(bars[len(bars)-1].Close / bars[0].Close)
	if math.Abs(sum-want) > 1e-12 {
		t.Errorf("Expected summed returns %g, got %g", want, sum)
	}
}

func TestComputeLogReturns_TooFewBars(t *testing.T) {
	_, err := ComputeLogReturns(testBars(100))
	if !errors.Is(err, ErrInvalidPriceData) {
		t.Errorf("Expected ErrInvalidPriceData for 1 bar, got %v", err)
	}

	_, err = ComputeLogReturns(nil)
	if !errors.Is(err, ErrInvalidPriceData) {
		t.Errorf("Expected ErrInvalidPriceData for no bars, got %v", err)
	}
}

func TestComputeLogReturns_NonPositiveClose(t *testing.T) {
	bars := testBars(100, 110)
	bars[1].Close = 0

	_, err := ComputeLogReturns(bars)
	if !errors.Is(err, ErrInvalidPriceData) {
		t.Errorf("Expected ErrInvalidPriceData for zero close, got %v", err)
	}

	bars[1].Close = -5
	_, err = ComputeLogReturns(bars)
	if !errors.Is(err, ErrInvalidPriceData) {
		t.Errorf("Expected ErrInvalidPriceData for negative close, got %v", err)
	}
}

func TestComputeLogReturns_NonIncreasingDates(t *testing.T) {
	bars := testBars(100, 110, 120)
	bars[2].DateMs = bars[1].DateMs

	_, err := ComputeLogReturns(bars)
	if !errors.Is(err, ErrInvalidPriceData) {
		t.Errorf("Expected ErrInvalidPriceData for equal dates, got %v", err)
	}

	bars[2].DateMs = bars[0].DateMs
	_, err = ComputeLogReturns(bars)
	if !errors.Is(err, ErrInvalidPriceData) {
		t.Errorf("Expected ErrInvalidPriceData for out-of-order dates, got %v", err)
	}
}
