package domain

// AnalysisRun records one engine execution with everything needed to
// reproduce it: configuration snapshot, input size, and output digests.
// Corresponds to analysis_runs table in PostgreSQL.
type AnalysisRun struct {
	RunID    string // PRIMARY KEY, deterministic hash
	SeriesID string

	// Configuration snapshot
	Window            int
	Threshold         float64
	MinBaselineSample int
	VarianceEpsilon   float64
	BaselineStartMs   int64
	BaselineEndMs     int64
	CrisisStartMs     int64
	CrisisEndMs       int64

	// Input and output fingerprints
	BarCount     int    // price bars consumed
	ConfigDigest string // hash of the configuration snapshot
	DataDigest   string // hash of the computed outputs

	// Headline result
	BreaksFirst string // top-ranked metric
	Ranking     string // comma-joined breaks-first ordering

	CreatedAt int64 // record creation timestamp (ms)
}

// Config rebuilds the AnalysisConfig this run was executed with.
func (r *AnalysisRun) Config() AnalysisConfig {
	return AnalysisConfig{
		Window:            r.Window,
		Threshold:         r.Threshold,
		MinBaselineSample: r.MinBaselineSample,
		VarianceEpsilon:   r.VarianceEpsilon,
		Baseline:          DateInterval{StartMs: r.BaselineStartMs, EndMs: r.BaselineEndMs},
		Crisis:            DateInterval{StartMs: r.CrisisStartMs, EndMs: r.CrisisEndMs},
	}
}

// IngestCheckpoint tracks the last bar date persisted per (source,
// series) so interrupted ingestion resumes without refetching.
// Corresponds to ingest_checkpoints table in PostgreSQL.
type IngestCheckpoint struct {
	Source     string // bar source name: csv | http | ws | synthetic
	SeriesID   string
	LastDateMs int64 // date of the newest persisted bar
	UpdatedAt  int64 // checkpoint update timestamp (ms)
}
