package memory

import (
	"context"
	"sort"
	"sync"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]*domain.IndexSeries // keyed by series_id
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{
		data: make(map[string]*domain.IndexSeries),
	}
}

// Insert adds a new series. Returns ErrDuplicateKey if series_id exists.
func (s *SeriesStore) Insert(_ context.Context, series *domain.IndexSeries) error {
	if series == nil || series.SeriesID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[series.SeriesID]; exists {
		return storage.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation
	seriesCopy := *series
	s.data[series.SeriesID] = &seriesCopy
	return nil
}

// GetByID retrieves a series by its ID. Returns ErrNotFound if not exists.
func (s *SeriesStore) GetByID(_ context.Context, seriesID string) (*domain.IndexSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, exists := s.data[seriesID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	seriesCopy := *series
	return &seriesCopy, nil
}

// GetAll retrieves all series, ordered by series_id ASC.
func (s *SeriesStore) GetAll(_ context.Context) ([]*domain.IndexSeries, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.IndexSeries, 0, len(s.data))
	for _, series := range s.data {
		seriesCopy := *series
		result = append(result, &seriesCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SeriesID < result[j].SeriesID
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.SeriesStore = (*SeriesStore)(nil)
