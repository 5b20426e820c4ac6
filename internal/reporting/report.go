package reporting

import "time"

// Report represents the autopsy report structure.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SeriesCount int

	// Study Setup
	Study StudySetup

	// Data Quality (sufficiency checks)
	DataQuality DataQualitySection

	// Per-series autopsy sections (sorted by series_id)
	Series []SeriesSection

	// Cross-series comparison
	Comparison []ComparisonRow

	// Reproducibility metadata per run
	Reproducibility []ReproducibilityRow
}

// StudySetup documents the analysis parameters the report was built with.
type StudySetup struct {
	Window            int
	Threshold         float64
	MinBaselineSample int
	BaselineStart     string
	BaselineEnd       string
	CrisisStart       string
	CrisisEnd         string
}

// DataQualitySection contains data sufficiency checks and integrity errors.
type DataQualitySection struct {
	SufficiencyChecks []SufficiencyCheckRow
	IntegrityErrors   []string
	AllChecksPassed   bool
}

// SufficiencyCheckRow represents one sufficiency criterion for one series.
type SufficiencyCheckRow struct {
	SeriesID  string
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SeriesSection is the autopsy of one index series.
type SeriesSection struct {
	SeriesID    string
	Name        string
	Symbol      string
	BarCount    int
	BreaksFirst string
	Ranking     string

	// Descriptive statistics of the daily log returns
	ReturnMean     float64
	ReturnStddev   float64
	ReturnSkewness float64
	ReturnKurtosis float64 // excess kurtosis

	// Per-channel breach rows (canonical metric order)
	Channels []ChannelRow
}

// ChannelRow represents one metric channel's breach record.
type ChannelRow struct {
	Metric             string
	Rank               int
	Breached           bool
	FirstBreachDate    string // empty when no breach
	DaysAboveThreshold int
	PeakAbsZCrisis     float64
	PeakDate           string
	PeakAbsZFull       float64
	MeanZCrisis        float64
}

// ComparisonRow is one cross-series comparison line: which channel broke
// first and how hard.
type ComparisonRow struct {
	SeriesID        string
	Name            string
	BreaksFirst     string
	FirstBreachDate string // of the top-ranked channel; empty when no breach
	PeakAbsZ        float64 // crisis-window peak of the top-ranked channel
	Ranking         string
}

// ReproducibilityRow carries the digests needed to re-derive one run.
type ReproducibilityRow struct {
	SeriesID     string
	RunID        string
	ConfigDigest string
	DataDigest   string
	BarCount     int
}
