package verification

import (
	"context"
	"errors"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/engine"
	"structural-break-lab/internal/idhash"
	"structural-break-lab/internal/storage"
)

var (
	// ErrRunNotFound is returned when a run ID doesn't exist.
	ErrRunNotFound = errors.New("run not found")

	// ErrNoBars is returned when a run's series has no stored bars.
	ErrNoBars = errors.New("no bars stored for series")
)

// ReplayVerifier implements Verifier over the storage layer.
type ReplayVerifier struct {
	runStore     storage.RunStore
	barStore     storage.PriceBarStore
	summaryStore storage.SummaryStore
}

// ReplayVerifierOptions contains the stores a ReplayVerifier reads from.
type ReplayVerifierOptions struct {
	RunStore     storage.RunStore
	BarStore     storage.PriceBarStore
	SummaryStore storage.SummaryStore
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:     opts.RunStore,
		barStore:     opts.BarStore,
		summaryStore: opts.SummaryStore,
	}
}

var _ Verifier = (*ReplayVerifier)(nil)

// VerifyRun verifies a single run by re-executing the analysis.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	// 1. Load the stored run
	stored, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	// 2. Replay the analysis over the stored bars
	result, err := v.replayRun(ctx, stored)
	if err != nil {
		return nil, err
	}

	replayedDigest := result.Digest()
	divergences := v.compareRun(stored, result, replayedDigest)

	// 3. Compare the persisted summary against the replayed one, when
	// one exists. A missing summary is itself a divergence.
	replayedSummary := result.Summary
	storedSummary, err := v.summaryStore.GetByRunID(ctx, runID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		divergences = append(divergences, FieldDivergence{
			Field:    "Summary",
			Expected: "present",
			Actual:   "missing",
		})
	case err != nil:
		return nil, err
	default:
		divergences = append(divergences, CompareSummaryRecords(storedSummary, &replayedSummary)...)
	}

	return &VerificationResult{
		RunID:          runID,
		SeriesID:       stored.SeriesID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredDigest:   stored.DataDigest,
		ReplayedDigest: replayedDigest,
	}, nil
}

// VerifyAll verifies every stored run.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			// Record the error as a divergence and keep going
			report.Results = append(report.Results, VerificationResult{
				RunID:        run.RunID,
				SeriesID:     run.SeriesID,
				Match:        false,
				StoredDigest: run.DataDigest,
				Divergences: []FieldDivergence{
					{Field: "Error", Expected: nil, Actual: err.Error()},
				},
			})
			report.DivergentRuns++
			continue
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

// replayRun reloads the run's bars and re-executes the engine with the
// run's stored configuration snapshot.
func (v *ReplayVerifier) replayRun(ctx context.Context, stored *domain.AnalysisRun) (*engine.Result, error) {
	bars, err := v.barStore.GetBySeriesID(ctx, stored.SeriesID)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	barValues := make([]domain.PriceBar, len(bars))
	for i, b := range bars {
		barValues[i] = *b
	}

	return engine.Analyze(stored.Config(), stored.SeriesID, barValues)
}

// compareRun checks the run-level fingerprints and headline result.
func (v *ReplayVerifier) compareRun(stored *domain.AnalysisRun, result *engine.Result, replayedDigest string) []FieldDivergence {
	var divergences []FieldDivergence

	cfg := stored.Config()
	configDigest := idhash.ComputeConfigDigest(cfg)

	if stored.ConfigDigest != configDigest {
		divergences = append(divergences, FieldDivergence{
			Field:    "ConfigDigest",
			Expected: stored.ConfigDigest,
			Actual:   configDigest,
		})
	}
	if stored.DataDigest != replayedDigest {
		divergences = append(divergences, FieldDivergence{
			Field:    "DataDigest",
			Expected: stored.DataDigest,
			Actual:   replayedDigest,
		})
	}

	// A run ID not derivable from its own digests was tampered with
	runID := idhash.ComputeRunID(stored.SeriesID, configDigest, replayedDigest)
	if stored.RunID != runID {
		divergences = append(divergences, FieldDivergence{
			Field:    "RunID",
			Expected: stored.RunID,
			Actual:   runID,
		})
	}

	if stored.BreaksFirst != string(result.Breakdown.BreaksFirst()) {
		divergences = append(divergences, FieldDivergence{
			Field:    "BreaksFirst",
			Expected: stored.BreaksFirst,
			Actual:   string(result.Breakdown.BreaksFirst()),
		})
	}
	if ranking := domain.JoinMetrics(result.Breakdown.Ranking); stored.Ranking != ranking {
		divergences = append(divergences, FieldDivergence{
			Field:    "Ranking",
			Expected: stored.Ranking,
			Actual:   ranking,
		})
	}
	// Returns consume the first bar
	if barCount := len(result.Returns) + 1; stored.BarCount != barCount {
		divergences = append(divergences, FieldDivergence{
			Field:    "BarCount",
			Expected: stored.BarCount,
			Actual:   barCount,
		})
	}

	return divergences
}
