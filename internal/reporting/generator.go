package reporting

import (
	"context"
	"time"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	seriesStore  storage.SeriesStore
	runStore     storage.RunStore
	summaryStore storage.SummaryStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	seriesStore storage.SeriesStore,
	runStore storage.RunStore,
	summaryStore storage.SummaryStore,
) *Generator {
	return &Generator{
		seriesStore:  seriesStore,
		runStore:     runStore,
		summaryStore: summaryStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete autopsy report from the latest run of
// every stored series. Series without runs are skipped. The DataQuality
// section is left empty; the pipeline fills it from its sufficiency
// phase.
func (g *Generator) Generate(ctx context.Context, cfg domain.AnalysisConfig) (*Report, error) {
	series, err := g.seriesStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		Study: StudySetup{
			Window:            cfg.Window,
			Threshold:         cfg.Threshold,
			MinBaselineSample: cfg.MinBaselineSample,
			BaselineStart:     domain.FormatDateMs(cfg.Baseline.StartMs),
			BaselineEnd:       domain.FormatDateMs(cfg.Baseline.EndMs),
			CrisisStart:       domain.FormatDateMs(cfg.Crisis.StartMs),
			CrisisEnd:         domain.FormatDateMs(cfg.Crisis.EndMs),
		},
	}

	for _, s := range series {
		runs, err := g.runStore.GetBySeriesID(ctx, s.SeriesID)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			continue
		}
		run := runs[len(runs)-1] // newest, runs are ordered created_at ASC

		summary, err := g.summaryStore.GetByRunID(ctx, run.RunID)
		if err != nil {
			return nil, err
		}

		report.Series = append(report.Series, buildSeriesSection(s, run, summary))
		report.Comparison = append(report.Comparison, buildComparisonRow(s, run, summary))
		report.Reproducibility = append(report.Reproducibility, ReproducibilityRow{
			SeriesID:     s.SeriesID,
			RunID:        run.RunID,
			ConfigDigest: run.ConfigDigest,
			DataDigest:   run.DataDigest,
			BarCount:     run.BarCount,
		})
	}

	report.SeriesCount = len(report.Series)
	return report, nil
}

func buildSeriesSection(s *domain.IndexSeries, run *domain.AnalysisRun, summary *domain.SummaryRecord) SeriesSection {
	section := SeriesSection{
		SeriesID:       s.SeriesID,
		Name:           s.Name,
		Symbol:         s.Symbol,
		BarCount:       run.BarCount,
		BreaksFirst:    run.BreaksFirst,
		Ranking:        run.Ranking,
		ReturnMean:     summary.ReturnMean,
		ReturnStddev:   summary.ReturnStddev,
		ReturnSkewness: summary.ReturnSkewness,
		ReturnKurtosis: summary.ReturnKurtosis,
	}

	for _, m := range summary.Metrics {
		row := ChannelRow{
			Metric:             string(m.Metric),
			Rank:               m.Rank,
			Breached:           m.Breached,
			DaysAboveThreshold: m.DaysAboveThreshold,
			PeakAbsZCrisis:     m.PeakAbsZCrisis,
			PeakDate:           domain.FormatDateMs(m.PeakMsCrisis),
			PeakAbsZFull:       m.PeakAbsZFull,
			MeanZCrisis:        m.MeanZCrisis,
		}
		if m.Breached {
			row.FirstBreachDate = domain.FormatDateMs(m.FirstBreachMs)
		}
		section.Channels = append(section.Channels, row)
	}

	return section
}

func buildComparisonRow(s *domain.IndexSeries, run *domain.AnalysisRun, summary *domain.SummaryRecord) ComparisonRow {
	row := ComparisonRow{
		SeriesID:    s.SeriesID,
		Name:        s.Name,
		BreaksFirst: run.BreaksFirst,
		Ranking:     run.Ranking,
	}

	if top, ok := summary.Metric(summary.BreaksFirst); ok {
		row.PeakAbsZ = top.PeakAbsZCrisis
		if top.Breached {
			row.FirstBreachDate = domain.FormatDateMs(top.FirstBreachMs)
		}
	}

	return row
}
