package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

func testAnalysisRun(runID, seriesID string, createdAt int64) *domain.AnalysisRun {
	cfg := domain.DefaultAnalysisConfig()
	return &domain.AnalysisRun{
		RunID:             runID,
		SeriesID:          seriesID,
		Window:            cfg.Window,
		Threshold:         cfg.Threshold,
		MinBaselineSample: cfg.MinBaselineSample,
		VarianceEpsilon:   cfg.VarianceEpsilon,
		BaselineStartMs:   cfg.Baseline.StartMs,
		BaselineEndMs:     cfg.Baseline.EndMs,
		CrisisStartMs:     cfg.Crisis.StartMs,
		CrisisEndMs:       cfg.Crisis.EndMs,
		BarCount:          652,
		ConfigDigest:      "cfgdigest",
		DataDigest:        "datadigest",
		BreaksFirst:       "variance",
		Ranking:           "variance,distribution,mean",
		CreatedAt:         createdAt,
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := testAnalysisRun("run-1", "nifty50", 1000)

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, run.SeriesID, got.SeriesID)
	assert.Equal(t, run.Window, got.Window)
	assert.InDelta(t, run.Threshold, got.Threshold, 0.0001)
	assert.Equal(t, run.BarCount, got.BarCount)
	assert.Equal(t, run.DataDigest, got.DataDigest)
	assert.Equal(t, run.BreaksFirst, got.BreaksFirst)
	assert.Equal(t, run.Ranking, got.Ranking)

	// Configuration snapshot must round-trip through the database
	assert.Equal(t, domain.DefaultAnalysisConfig(), got.Config())
}

func TestRunStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	run := testAnalysisRun("run-1", "s1", 1000)

	err := store.Insert(ctx, run)
	require.NoError(t, err)

	err = store.Insert(ctx, run)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRunStore(pool)

	_, err := store.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestRunStore_GetBySeriesIDOrdered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunStore(pool)

	runs := []*domain.AnalysisRun{
		testAnalysisRun("run-b", "s1", 2000),
		testAnalysisRun("run-a", "s1", 1000),
		testAnalysisRun("run-c", "s2", 1500),
	}
	for _, r := range runs {
		err := store.Insert(ctx, r)
		require.NoError(t, err)
	}

	result, err := store.GetBySeriesID(ctx, "s1")
	require.NoError(t, err)

	require.Len(t, result, 2)
	assert.Equal(t, "run-a", result[0].RunID)
	assert.Equal(t, "run-b", result[1].RunID)
}
