package domain

// MetricBreach records threshold behavior of one channel inside the
// crisis window.
type MetricBreach struct {
	Metric             Metric
	Breached           bool    // |z| reached the threshold at least once
	FirstBreachMs      int64   // first date with |z| >= threshold, 0 when no breach
	PeakAbsZ           float64 // max |z| inside the crisis window
	PeakMs             int64   // date of the peak (first occurrence on ties)
	DaysAboveThreshold int     // crisis-window days with |z| >= threshold
}

// BreakdownResult is the classifier output for one series: per-channel
// breach records plus the breaks-first ordering. Produced once per
// analysis run; immutable.
type BreakdownResult struct {
	Threshold float64
	Breaches  []MetricBreach // canonical metric order (AllMetrics)
	Ranking   []Metric       // breaks-first order
}

// Breach returns the breach record for a metric.
func (r *BreakdownResult) Breach(m Metric) (MetricBreach, bool) {
	for _, b := range r.Breaches {
		if b.Metric == m {
			return b, true
		}
	}
	return MetricBreach{}, false
}

// BreaksFirst returns the top-ranked metric.
func (r *BreakdownResult) BreaksFirst() Metric {
	if len(r.Ranking) == 0 {
		return ""
	}
	return r.Ranking[0]
}

// MetricSummary is the per-channel slice of a SummaryRecord.
type MetricSummary struct {
	Metric             Metric
	PeakAbsZFull       float64 // max |z| over the full normalized series
	PeakAbsZCrisis     float64 // max |z| inside the crisis window
	PeakMsCrisis       int64   // date of the crisis-window peak
	MeanZCrisis        float64 // mean z inside the crisis window
	Breached           bool
	FirstBreachMs      int64 // 0 when no breach
	DaysAboveThreshold int
	Rank               int // 1-based position in the breaks-first ordering
}

// SummaryRecord is one comparison-table row: breach metadata per channel
// plus descriptive statistics of the underlying returns.
// Corresponds to summary_records table in PostgreSQL.
type SummaryRecord struct {
	RunID     string // set when the record is persisted
	SeriesID  string
	Threshold float64

	// Descriptive statistics of the full return series
	ReturnMean     float64
	ReturnStddev   float64
	ReturnSkewness float64
	ReturnKurtosis float64 // excess (Fisher) kurtosis

	Metrics     []MetricSummary // canonical metric order
	Ranking     []Metric        // breaks-first order
	BreaksFirst Metric
}

// Metric returns the per-channel summary for a metric.
func (s *SummaryRecord) Metric(m Metric) (MetricSummary, bool) {
	for _, ms := range s.Metrics {
		if ms.Metric == m {
			return ms, true
		}
	}
	return MetricSummary{}, false
}

// ComparisonTable merges summary rows across series, keyed by SeriesID.
// Row order follows insertion order (the study's series order).
type ComparisonTable struct {
	Rows []SummaryRecord
}
