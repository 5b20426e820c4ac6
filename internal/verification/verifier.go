// Package verification re-executes stored analysis runs and checks
// that the persisted results are reproducible from the stored bars.
package verification

import (
	"context"
	"math"

	"structural-break-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons. Replay over
// identical inputs is deterministic, so the bound is tight.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID          string            // verified run ID
	SeriesID       string            // series the run belongs to
	Match          bool              // true if all fields match
	Divergences    []FieldDivergence // list of divergent fields
	StoredDigest   string            // data digest from the stored run
	ReplayedDigest string            // data digest from the replayed analysis
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int                  // total runs verified
	MatchedRuns   int                  // runs that matched exactly
	DivergentRuns int                  // runs with divergences
	Results       []VerificationResult // individual results
}

// Verifier re-executes stored runs against stored bars.
type Verifier interface {
	// VerifyRun verifies a single run by ID. It reloads the series
	// bars, re-runs the analysis with the run's stored configuration,
	// and compares digests, ranking, and the summary record.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies every stored run.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareSummaryRecords compares a stored summary against a replayed
// one and returns divergences. Uses FloatTolerance for float64 fields.
func CompareSummaryRecords(stored, replayed *domain.SummaryRecord) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.SeriesID != replayed.SeriesID {
		divergences = append(divergences, FieldDivergence{
			Field:    "SeriesID",
			Expected: stored.SeriesID,
			Actual:   replayed.SeriesID,
		})
	}

	if !floatEquals(stored.Threshold, replayed.Threshold) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Threshold",
			Expected: stored.Threshold,
			Actual:   replayed.Threshold,
		})
	}

	// Descriptive statistics of the return series
	statFields := []struct {
		name             string
		stored, replayed float64
	}{
		{"ReturnMean", stored.ReturnMean, replayed.ReturnMean},
		{"ReturnStddev", stored.ReturnStddev, replayed.ReturnStddev},
		{"ReturnSkewness", stored.ReturnSkewness, replayed.ReturnSkewness},
		{"ReturnKurtosis", stored.ReturnKurtosis, replayed.ReturnKurtosis},
	}
	for _, f := range statFields {
		if !floatEquals(f.stored, f.replayed) {
			divergences = append(divergences, FieldDivergence{
				Field:    f.name,
				Expected: f.stored,
				Actual:   f.replayed,
			})
		}
	}

	// Headline ordering
	if stored.BreaksFirst != replayed.BreaksFirst {
		divergences = append(divergences, FieldDivergence{
			Field:    "BreaksFirst",
			Expected: stored.BreaksFirst,
			Actual:   replayed.BreaksFirst,
		})
	}
	if sr, rr := domain.JoinMetrics(stored.Ranking), domain.JoinMetrics(replayed.Ranking); sr != rr {
		divergences = append(divergences, FieldDivergence{
			Field:    "Ranking",
			Expected: sr,
			Actual:   rr,
		})
	}

	// Per-channel breach records
	for _, m := range domain.AllMetrics {
		sc, sok := stored.Metric(m)
		rc, rok := replayed.Metric(m)
		if sok != rok {
			divergences = append(divergences, FieldDivergence{
				Field:    string(m) + ".present",
				Expected: sok,
				Actual:   rok,
			})
			continue
		}
		if !sok {
			continue
		}
		divergences = append(divergences, compareChannels(string(m), sc, rc)...)
	}

	return divergences
}

// compareChannels compares one per-channel summary slice.
func compareChannels(prefix string, stored, replayed domain.MetricSummary) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.Breached != replayed.Breached {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + ".Breached",
			Expected: stored.Breached,
			Actual:   replayed.Breached,
		})
	}
	if stored.FirstBreachMs != replayed.FirstBreachMs {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + ".FirstBreachMs",
			Expected: stored.FirstBreachMs,
			Actual:   replayed.FirstBreachMs,
		})
	}
	if stored.PeakMsCrisis != replayed.PeakMsCrisis {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + ".PeakMsCrisis",
			Expected: stored.PeakMsCrisis,
			Actual:   replayed.PeakMsCrisis,
		})
	}
	if stored.DaysAboveThreshold != replayed.DaysAboveThreshold {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + ".DaysAboveThreshold",
			Expected: stored.DaysAboveThreshold,
			Actual:   replayed.DaysAboveThreshold,
		})
	}
	if stored.Rank != replayed.Rank {
		divergences = append(divergences, FieldDivergence{
			Field:    prefix + ".Rank",
			Expected: stored.Rank,
			Actual:   replayed.Rank,
		})
	}

	floatFields := []struct {
		name             string
		stored, replayed float64
	}{
		{".PeakAbsZFull", stored.PeakAbsZFull, replayed.PeakAbsZFull},
		{".PeakAbsZCrisis", stored.PeakAbsZCrisis, replayed.PeakAbsZCrisis},
		{".MeanZCrisis", stored.MeanZCrisis, replayed.MeanZCrisis},
	}
	for _, f := range floatFields {
		if !floatEquals(f.stored, f.replayed) {
			divergences = append(divergences, FieldDivergence{
				Field:    prefix + f.name,
				Expected: f.stored,
				Actual:   f.replayed,
			})
		}
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
