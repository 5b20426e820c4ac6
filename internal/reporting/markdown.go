package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Structural Break Autopsy\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Series analyzed: %d\n\n", r.SeriesCount))

	// Study Setup
	sb.WriteString("## Study Setup\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Rolling Window | %d trading days |\n", r.Study.Window))
	sb.WriteString(fmt.Sprintf("| Threshold | %.2f |\n", r.Study.Threshold))
	sb.WriteString(fmt.Sprintf("| Min Baseline Sample | %d |\n", r.Study.MinBaselineSample))
	sb.WriteString(fmt.Sprintf("| Baseline Period | %s to %s |\n", r.Study.BaselineStart, r.Study.BaselineEnd))
	sb.WriteString(fmt.Sprintf("| Crisis Window | %s to %s |\n", r.Study.CrisisStart, r.Study.CrisisEnd))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if len(r.DataQuality.SufficiencyChecks) > 0 {
		sb.WriteString("### Sufficiency Checks\n\n")
		sb.WriteString("| Series | Check | Threshold | Actual | Status |\n")
		sb.WriteString("|--------|-------|-----------|--------|--------|\n")
		for _, check := range r.DataQuality.SufficiencyChecks {
			status := "FAIL"
			if check.Pass {
				status = "PASS"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
				check.SeriesID, check.Name, check.Threshold, check.Actual, status))
		}
		sb.WriteString("\n")

		if r.DataQuality.AllChecksPassed {
			sb.WriteString("**All checks passed.**\n\n")
		} else {
			sb.WriteString("**Some checks failed.** Status: INSUFFICIENT_DATA\n\n")
		}
	} else if len(r.DataQuality.IntegrityErrors) == 0 {
		sb.WriteString("No data quality checks performed.\n\n")
	}

	// Integrity errors (always shown if present, even without sufficiency checks)
	if len(r.DataQuality.IntegrityErrors) > 0 {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// The headline table
	sb.WriteString("## What Breaks First\n\n")
	if len(r.Comparison) > 0 {
		sb.WriteString("| Series | Breaks First | First Breach | Peak \\|z\\| | Ranking |\n")
		sb.WriteString("|--------|--------------|--------------|-----------|----------|\n")
		for _, c := range r.Comparison {
			firstBreach := c.FirstBreachDate
			if firstBreach == "" {
				firstBreach = "no breach"
			}
			sb.WriteString(fmt.Sprintf("| %s (%s) | %s | %s | %.4f | %s |\n",
				c.Name, c.SeriesID, c.BreaksFirst, firstBreach, c.PeakAbsZ, c.Ranking))
		}
	} else {
		sb.WriteString("No comparison data available.\n")
	}
	sb.WriteString("\n")

	// Per-series sections
	for _, s := range r.Series {
		sb.WriteString(fmt.Sprintf("## Series: %s (%s)\n\n", s.Name, s.SeriesID))
		sb.WriteString(fmt.Sprintf("Symbol: %s | Bars: %d | Breaks first: **%s**\n\n",
			s.Symbol, s.BarCount, s.BreaksFirst))

		sb.WriteString("### Return Statistics\n\n")
		sb.WriteString("| Mean | Stddev | Skewness | Excess Kurtosis |\n")
		sb.WriteString("|------|--------|----------|------------------|\n")
		sb.WriteString(fmt.Sprintf("| %.6f | %.6f | %.4f | %.4f |\n\n",
			s.ReturnMean, s.ReturnStddev, s.ReturnSkewness, s.ReturnKurtosis))

		sb.WriteString("### Channel Breakdown\n\n")
		sb.WriteString("| Rank | Channel | Breached | First Breach | Days Above | Peak \\|z\\| (crisis) | Peak Date | Peak \\|z\\| (full) | Mean z (crisis) |\n")
		sb.WriteString("|------|---------|----------|--------------|------------|---------------------|-----------|-------------------|------------------|\n")
		for _, ch := range s.Channels {
			breached := "no"
			firstBreach := "-"
			if ch.Breached {
				breached = "yes"
				firstBreach = ch.FirstBreachDate
			}
			sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %d | %.4f | %s | %.4f | %.4f |\n",
				ch.Rank, ch.Metric, breached, firstBreach, ch.DaysAboveThreshold,
				ch.PeakAbsZCrisis, ch.PeakDate, ch.PeakAbsZFull, ch.MeanZCrisis))
		}
		sb.WriteString("\n")
	}

	// Reproducibility
	sb.WriteString("## Reproducibility\n\n")
	if len(r.Reproducibility) > 0 {
		sb.WriteString("| Series | Run ID | Config Digest | Data Digest | Bars |\n")
		sb.WriteString("|--------|--------|---------------|-------------|------|\n")
		for _, rep := range r.Reproducibility {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d |\n",
				rep.SeriesID, rep.RunID, rep.ConfigDigest, rep.DataDigest, rep.BarCount))
		}
	} else {
		sb.WriteString("No run metadata available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
