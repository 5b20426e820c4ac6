package memory

import (
	"context"
	"sync"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// CheckpointStore is an in-memory implementation of storage.CheckpointStore.
type CheckpointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.IngestCheckpoint // keyed by (source, series_id)
}

// NewCheckpointStore creates a new in-memory checkpoint store.
func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		data: make(map[string]*domain.IngestCheckpoint),
	}
}

func checkpointKey(source, seriesID string) string {
	return source + "|" + seriesID
}

// Save stores or replaces a checkpoint.
func (s *CheckpointStore) Save(_ context.Context, cp *domain.IngestCheckpoint) error {
	if cp == nil || cp.Source == "" || cp.SeriesID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cpCopy := *cp
	s.data[checkpointKey(cp.Source, cp.SeriesID)] = &cpCopy
	return nil
}

// Get retrieves a checkpoint. Returns ErrNotFound if none saved yet.
func (s *CheckpointStore) Get(_ context.Context, source, seriesID string) (*domain.IngestCheckpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, exists := s.data[checkpointKey(source, seriesID)]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cpCopy := *cp
	return &cpCopy, nil
}

// Verify interface compliance at compile time.
var _ storage.CheckpointStore = (*CheckpointStore)(nil)
