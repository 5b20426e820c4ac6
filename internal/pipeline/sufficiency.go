package pipeline

import (
	"context"
	"fmt"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/reporting"
	"structural-break-lab/internal/storage"
)

// SufficiencyCheck represents one data sufficiency criterion.
type SufficiencyCheck struct {
	SeriesID  string
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// SufficiencyResult contains the checks for every series in the study.
type SufficiencyResult struct {
	Checks  []SufficiencyCheck
	AllPass bool
	Errors  []string // data integrity errors
}

// SufficiencyChecker validates stored bars before any analysis runs.
type SufficiencyChecker struct {
	barStore storage.PriceBarStore
}

// NewSufficiencyChecker creates a new sufficiency checker.
func NewSufficiencyChecker(barStore storage.PriceBarStore) *SufficiencyChecker {
	return &SufficiencyChecker{barStore: barStore}
}

// Check performs all sufficiency checks for every series against the
// study configuration.
func (c *SufficiencyChecker) Check(ctx context.Context, series []*domain.IndexSeries, cfg domain.AnalysisConfig) (*SufficiencyResult, error) {
	result := &SufficiencyResult{
		AllPass: true,
		Errors:  []string{},
	}

	for _, s := range series {
		bars, err := c.barStore.GetBySeriesID(ctx, s.SeriesID)
		if err != nil {
			return nil, fmt.Errorf("load bars for %s: %w", s.SeriesID, err)
		}

		checks := []SufficiencyCheck{
			c.checkBarCount(s.SeriesID, bars, cfg),
			c.checkBaselineSample(s.SeriesID, bars, cfg),
			c.checkCrisisCoverage(s.SeriesID, bars, cfg),
		}
		for _, check := range checks {
			result.Checks = append(result.Checks, check)
			if !check.Pass {
				result.AllPass = false
			}
		}

		result.Errors = append(result.Errors, c.integrityErrors(s.SeriesID, bars)...)
	}

	if len(result.Errors) > 0 {
		result.AllPass = false
	}

	return result, nil
}

// checkBarCount: enough bars for at least one full rolling window.
func (c *SufficiencyChecker) checkBarCount(seriesID string, bars []*domain.PriceBar, cfg domain.AnalysisConfig) SufficiencyCheck {
	// One extra bar: returns consume the first one
	need := cfg.Window + 1
	return SufficiencyCheck{
		SeriesID:  seriesID,
		Name:      "Total bars",
		Threshold: fmt.Sprintf(">= %d", need),
		Actual:    fmt.Sprintf("%d", len(bars)),
		Pass:      len(bars) >= need,
	}
}

// checkBaselineSample: enough baseline-period returns to condition on.
func (c *SufficiencyChecker) checkBaselineSample(seriesID string, bars []*domain.PriceBar, cfg domain.AnalysisConfig) SufficiencyCheck {
	count := 0
	for i := 1; i < len(bars); i++ {
		if cfg.Baseline.Contains(bars[i].DateMs) {
			count++
		}
	}
	return SufficiencyCheck{
		SeriesID:  seriesID,
		Name:      "Baseline sample",
		Threshold: fmt.Sprintf(">= %d", cfg.MinBaselineSample),
		Actual:    fmt.Sprintf("%d", count),
		Pass:      count >= cfg.MinBaselineSample,
	}
}

// checkCrisisCoverage: the crisis window must contain data.
func (c *SufficiencyChecker) checkCrisisCoverage(seriesID string, bars []*domain.PriceBar, cfg domain.AnalysisConfig) SufficiencyCheck {
	count := 0
	for _, b := range bars {
		if cfg.Crisis.Contains(b.DateMs) {
			count++
		}
	}
	return SufficiencyCheck{
		SeriesID:  seriesID,
		Name:      "Crisis window bars",
		Threshold: ">= 1",
		Actual:    fmt.Sprintf("%d", count),
		Pass:      count >= 1,
	}
}

// integrityErrors scans for defects that invalidate the series outright.
func (c *SufficiencyChecker) integrityErrors(seriesID string, bars []*domain.PriceBar) []string {
	var errs []string

	nonPositive := 0
	duplicates := 0
	for i, b := range bars {
		if b.Close <= 0 {
			nonPositive++
		}
		if i > 0 && b.DateMs == bars[i-1].DateMs {
			duplicates++
		}
	}
	if nonPositive > 0 {
		errs = append(errs, fmt.Sprintf("series %s: %d non-positive closes", seriesID, nonPositive))
	}
	if duplicates > 0 {
		errs = append(errs, fmt.Sprintf("series %s: %d duplicate bar dates", seriesID, duplicates))
	}

	return errs
}

// toDataQuality converts a SufficiencyResult to the report section.
func toDataQuality(result *SufficiencyResult) reporting.DataQualitySection {
	section := reporting.DataQualitySection{
		SufficiencyChecks: make([]reporting.SufficiencyCheckRow, len(result.Checks)),
		IntegrityErrors:   result.Errors,
		AllChecksPassed:   result.AllPass,
	}
	for i, check := range result.Checks {
		section.SufficiencyChecks[i] = reporting.SufficiencyCheckRow{
			SeriesID:  check.SeriesID,
			Name:      check.Name,
			Threshold: check.Threshold,
			Actual:    check.Actual,
			Pass:      check.Pass,
		}
	}
	return section
}
