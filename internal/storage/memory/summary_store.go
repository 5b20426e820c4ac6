package memory

import (
	"context"
	"sync"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SummaryRecord // keyed by run_id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[string]*domain.SummaryRecord),
	}
}

// Insert adds a summary record. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(_ context.Context, rec *domain.SummaryRecord) error {
	if rec == nil || rec.RunID == "" || rec.SeriesID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[rec.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[rec.RunID] = copySummary(rec)
	return nil
}

// GetByRunID retrieves the summary for a run. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(_ context.Context, runID string) (*domain.SummaryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	return copySummary(rec), nil
}

// copySummary deep-copies a record; SummaryRecord carries slices, so a
// plain struct copy would share them with the caller.
func copySummary(rec *domain.SummaryRecord) *domain.SummaryRecord {
	recCopy := *rec
	recCopy.Metrics = append([]domain.MetricSummary(nil), rec.Metrics...)
	recCopy.Ranking = append([]domain.Metric(nil), rec.Ranking...)
	return &recCopy
}

// Verify interface compliance at compile time.
var _ storage.SummaryStore = (*SummaryStore)(nil)
