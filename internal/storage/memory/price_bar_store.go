package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// PriceBarStore is an in-memory implementation of storage.PriceBarStore.
type PriceBarStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PriceBar // keyed by (series_id, date_ms)
}

// NewPriceBarStore creates a new in-memory price bar store.
func NewPriceBarStore() *PriceBarStore {
	return &PriceBarStore{
		data: make(map[string]*domain.PriceBar),
	}
}

// barKey generates a unique key for a price bar.
func barKey(seriesID string, dateMs int64) string {
	return fmt.Sprintf("%s|%d", seriesID, dateMs)
}

// InsertBulk adds multiple bars. Fails entire batch on duplicate.
func (s *PriceBarStore) InsertBulk(_ context.Context, bars []*domain.PriceBar) error {
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil || b.SeriesID == "" {
			return storage.ErrInvalidInput
		}
		key := barKey(b.SeriesID, b.DateMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, b := range bars {
		key := barKey(b.SeriesID, b.DateMs)
		barCopy := *b
		s.data[key] = &barCopy
	}

	return nil
}

// GetBySeriesID retrieves all bars for a series, ordered by date ASC.
func (s *PriceBarStore) GetBySeriesID(_ context.Context, seriesID string) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data {
		if b.SeriesID == seriesID {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DateMs < result[j].DateMs
	})

	return result, nil
}

// GetByDateRange retrieves bars for a series within [start, end] (inclusive).
func (s *PriceBarStore) GetByDateRange(_ context.Context, seriesID string, start, end int64) ([]*domain.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceBar
	for _, b := range s.data {
		if b.SeriesID == seriesID && b.DateMs >= start && b.DateMs <= end {
			barCopy := *b
			result = append(result, &barCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DateMs < result[j].DateMs
	})

	return result, nil
}

// GetLatestDate returns the newest bar date for a series.
func (s *PriceBarStore) GetLatestDate(_ context.Context, seriesID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int64
	found := false
	for _, b := range s.data {
		if b.SeriesID == seriesID && (!found || b.DateMs > latest) {
			latest = b.DateMs
			found = true
		}
	}
	if !found {
		return 0, storage.ErrNotFound
	}
	return latest, nil
}

// Verify interface compliance at compile time.
var _ storage.PriceBarStore = (*PriceBarStore)(nil)
