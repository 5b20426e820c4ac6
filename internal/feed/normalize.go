package feed

import (
	"fmt"
	"sort"

	"structural-break-lab/internal/domain"
)

// Normalize sorts bars by date ascending, drops exact-date duplicates
// (keeping the first occurrence), and rejects non-positive closes.
// The input slice is not modified.
func Normalize(bars []domain.PriceBar) ([]domain.PriceBar, error) {
	out := make([]domain.PriceBar, len(bars))
	copy(out, bars)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateMs < out[j].DateMs
	})

	deduped := out[:0]
	var prevMs int64 = -1
	for _, b := range out {
		if b.Close <= 0 {
			return nil, fmt.Errorf("%w: non-positive close %g at %s",
				ErrInvalidBarData, b.Close, domain.FormatDateMs(b.DateMs))
		}
		if b.DateMs == prevMs {
			continue
		}
		deduped = append(deduped, b)
		prevMs = b.DateMs
	}

	return deduped, nil
}
