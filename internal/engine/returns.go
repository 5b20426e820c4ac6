package engine

import (
	"fmt"
	"math"

	"structural-break-lab/internal/domain"
)

// ComputeLogReturns converts an adjusted-close bar sequence into daily
// log returns: r[t] = ln(close[t]) - ln(close[t-1]). Pure; the output
// has length len(bars)-1 and carries the date of each interval's end.
//
// Fails with ErrInvalidPriceData on fewer than two bars, a non-positive
// close (undefined logarithm), or dates that are not strictly
// increasing.
func ComputeLogReturns(bars []domain.PriceBar) ([]domain.ReturnPoint, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 observations, got %d", ErrInvalidPriceData, len(bars))
	}
	for i, b := range bars {
		if b.Close <= 0 {
			return nil, fmt.Errorf("%w: non-positive close %g at %s", ErrInvalidPriceData, b.Close, domain.FormatDateMs(b.DateMs))
		}
		if i > 0 && b.DateMs <= bars[i-1].DateMs {
			return nil, fmt.Errorf("%w: dates not strictly increasing at %s", ErrInvalidPriceData, domain.FormatDateMs(b.DateMs))
		}
	}

	returns := make([]domain.ReturnPoint, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		returns = append(returns, domain.ReturnPoint{
			DateMs: bars[i].DateMs,
			Value:  math.Log(bars[i].Close) - math.Log(bars[i-1].Close),
		})
	}
	return returns, nil
}
