package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// MetricPointStore is an in-memory implementation of storage.MetricPointStore.
type MetricPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MetricPoint // keyed by (run_id, date_ms)
}

// NewMetricPointStore creates a new in-memory metric point store.
func NewMetricPointStore() *MetricPointStore {
	return &MetricPointStore{
		data: make(map[string]*domain.MetricPoint),
	}
}

// pointKey generates a unique key for a metric point.
func pointKey(runID string, dateMs int64) string {
	return fmt.Sprintf("%s|%d", runID, dateMs)
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *MetricPointStore) InsertBulk(_ context.Context, points []*domain.MetricPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(points))

	for _, p := range points {
		if p == nil || p.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.RunID, p.DateMs)

		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		key := pointKey(p.RunID, p.DateMs)
		pointCopy := *p
		s.data[key] = &pointCopy
	}

	return nil
}

// GetByRunID retrieves all points for a run, ordered by date ASC.
func (s *MetricPointStore) GetByRunID(_ context.Context, runID string) ([]*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricPoint
	for _, p := range s.data {
		if p.RunID == runID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DateMs < result[j].DateMs
	})

	return result, nil
}

// GetByDateRange retrieves points for a run within [start, end] (inclusive).
func (s *MetricPointStore) GetByDateRange(_ context.Context, runID string, start, end int64) ([]*domain.MetricPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MetricPoint
	for _, p := range s.data {
		if p.RunID == runID && p.DateMs >= start && p.DateMs <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DateMs < result[j].DateMs
	})

	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.MetricPointStore = (*MetricPointStore)(nil)
