package reporting

import (
	"fmt"
	"strings"

	"structural-break-lab/internal/domain"
)

// RenderComparisonCSV renders the cross-series comparison as CSV string.
func RenderComparisonCSV(rows []ComparisonRow) string {
	var sb strings.Builder

	sb.WriteString("series_id,name,breaks_first,first_breach_date,peak_abs_z,ranking\n")
	for _, c := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%q\n",
			c.SeriesID, c.Name, c.BreaksFirst, c.FirstBreachDate, c.PeakAbsZ, c.Ranking))
	}

	return sb.String()
}

// RenderSummaryCSV renders per-channel summary records as CSV string,
// one row per (series, metric).
func RenderSummaryCSV(records []domain.SummaryRecord) string {
	var sb strings.Builder

	sb.WriteString("series_id,metric,rank,breached,first_breach_date,days_above_threshold,")
	sb.WriteString("peak_abs_z_crisis,peak_date,peak_abs_z_full,mean_z_crisis,")
	sb.WriteString("return_mean,return_stddev,return_skewness,return_kurtosis\n")

	for _, rec := range records {
		for _, m := range rec.Metrics {
			firstBreach := ""
			if m.Breached {
				firstBreach = domain.FormatDateMs(m.FirstBreachMs)
			}
			sb.WriteString(fmt.Sprintf("%s,%s,%d,%t,%s,%d,%.6f,%s,%.6f,%.6f,%.9f,%.9f,%.6f,%.6f\n",
				rec.SeriesID,
				m.Metric,
				m.Rank,
				m.Breached,
				firstBreach,
				m.DaysAboveThreshold,
				m.PeakAbsZCrisis,
				domain.FormatDateMs(m.PeakMsCrisis),
				m.PeakAbsZFull,
				m.MeanZCrisis,
				rec.ReturnMean,
				rec.ReturnStddev,
				rec.ReturnSkewness,
				rec.ReturnKurtosis,
			))
		}
	}

	return sb.String()
}

// RenderMetricPointsCSV renders per-day metric rows as CSV string.
func RenderMetricPointsCSV(points []*domain.MetricPoint) string {
	var sb strings.Builder

	sb.WriteString("run_id,series_id,date,rolling_mean,rolling_variance,rolling_volatility,")
	sb.WriteString("ks_distance,z_mean,z_volatility,z_distribution\n")

	for _, p := range points {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.9g,%.9g,%.9g,%.9g,%.9g,%.9g,%.9g\n",
			p.RunID,
			p.SeriesID,
			domain.FormatDateMs(p.DateMs),
			p.RollingMean,
			p.RollingVariance,
			p.RollingVolatility,
			p.KSDistance,
			p.ZMean,
			p.ZVolatility,
			p.ZDistribution,
		))
	}

	return sb.String()
}
