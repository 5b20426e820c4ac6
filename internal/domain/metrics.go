package domain

import "strings"

// Metric identifies one of the three structural-break channels.
type Metric string

const (
	MetricMean         Metric = "mean"         // rolling mean of returns
	MetricVariance     Metric = "variance"     // rolling dispersion, standardized on volatility
	MetricDistribution Metric = "distribution" // two-sample KS distance vs baseline
)

// AllMetrics lists the channels in canonical order. Ranking tie-breaks
// and report rows follow this order.
var AllMetrics = []Metric{MetricMean, MetricVariance, MetricDistribution}

// String returns the string representation of Metric.
func (m Metric) String() string {
	return string(m)
}

// IsValid checks if the metric is a valid value.
func (m Metric) IsValid() bool {
	return m == MetricMean || m == MetricVariance || m == MetricDistribution
}

// JoinMetrics renders a metric ordering as a comma-joined string,
// the form persisted on analysis_runs rows.
func JoinMetrics(metrics []Metric) string {
	parts := make([]string, len(metrics))
	for i, m := range metrics {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

// SplitMetrics parses a comma-joined metric ordering.
func SplitMetrics(s string) []Metric {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	metrics := make([]Metric, len(parts))
	for i, p := range parts {
		metrics[i] = Metric(p)
	}
	return metrics
}

// BaselineDistribution is the empirical distribution of returns inside
// the reference interval. Built once by the baseline extractor and
// treated as immutable for the lifetime of one analysis run.
type BaselineDistribution struct {
	Interval     DateInterval // reference interval the values were drawn from
	Values       []float64    // returns in date order
	SortedValues []float64    // same values sorted ascending, for CDF evaluation
	Mean         float64
	Stddev       float64 // sample standard deviation (n-1)
}

// Count returns the baseline sample size.
func (b *BaselineDistribution) Count() int {
	return len(b.Values)
}

// RollingMetricSeries holds the three windowed statistics, date-aligned.
// All slices share identical length: source length - window + 1.
type RollingMetricSeries struct {
	Window     int       // window length the series was computed with
	DatesMs    []int64   // window end dates
	Mean       []float64 // rolling mean of returns
	Variance   []float64 // rolling sample variance
	Volatility []float64 // sqrt of rolling variance
	KSDistance []float64 // two-sample KS distance, window vs baseline
}

// Len returns the number of rolling observations.
func (s *RollingMetricSeries) Len() int {
	return len(s.DatesMs)
}

// Channel returns the values standardization operates on for a metric:
// the mean channel, the volatility channel, or the KS channel.
func (s *RollingMetricSeries) Channel(m Metric) []float64 {
	switch m {
	case MetricMean:
		return s.Mean
	case MetricVariance:
		return s.Volatility
	case MetricDistribution:
		return s.KSDistance
	}
	return nil
}

// NormalizedMetricSeries holds the three channels as z-scores relative
// to the baseline period's own mean/std of each channel. Alignment and
// length match the RollingMetricSeries it was derived from (or a
// date-sliced subsequence of it).
type NormalizedMetricSeries struct {
	DatesMs    []int64
	Mean       []float64 // z-scores of the rolling mean
	Volatility []float64 // z-scores of the rolling volatility
	KSDistance []float64 // z-scores of the KS distance
}

// Len returns the number of normalized observations.
func (s *NormalizedMetricSeries) Len() int {
	return len(s.DatesMs)
}

// Channel returns the z-score slice for a metric.
func (s *NormalizedMetricSeries) Channel(m Metric) []float64 {
	switch m {
	case MetricMean:
		return s.Mean
	case MetricVariance:
		return s.Volatility
	case MetricDistribution:
		return s.KSDistance
	}
	return nil
}

// MetricPoint is one per-day row of rolling and normalized values for
// one analysis run. Corresponds to metric_points table in ClickHouse.
type MetricPoint struct {
	RunID             string
	SeriesID          string
	DateMs            int64
	RollingMean       float64
	RollingVariance   float64
	RollingVolatility float64
	KSDistance        float64
	ZMean             float64
	ZVolatility       float64
	ZDistribution     float64
}
