// Package pipeline orchestrates the full autopsy: sufficiency gate,
// per-series analysis, persistence, and report generation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/engine"
	"structural-break-lab/internal/idhash"
	"structural-break-lab/internal/observability"
	"structural-break-lab/internal/reporting"
	"structural-break-lab/internal/storage"
)

// Status is the terminal state of one pipeline run.
type Status string

const (
	StatusComplete         Status = "COMPLETE"
	StatusInsufficientData Status = "INSUFFICIENT_DATA"
)

// Output file names written into the output directory.
const (
	ReportFileName       = "REPORT_AUTOPSY.md"
	ComparisonFileName   = "comparison_table.csv"
	SummaryFileName      = "summary_records.csv"
	MetricPointsFileName = "metric_points.csv"
)

// Options contains everything the pipeline needs.
type Options struct {
	SeriesStore      storage.SeriesStore
	BarStore         storage.PriceBarStore
	RunStore         storage.RunStore
	SummaryStore     storage.SummaryStore
	MetricPointStore storage.MetricPointStore
	Config           domain.AnalysisConfig
	OutputDir        string
	Logger           *log.Logger
}

// Autopsy runs the study end to end over every registered series.
type Autopsy struct {
	seriesStore      storage.SeriesStore
	barStore         storage.PriceBarStore
	runStore         storage.RunStore
	summaryStore     storage.SummaryStore
	metricPointStore storage.MetricPointStore
	config           domain.AnalysisConfig
	outputDir        string
	logger           *log.Logger

	sufficiency *SufficiencyChecker
	reportGen   *reporting.Generator
	clock       func() time.Time
}

// NewAutopsy creates a new pipeline.
func NewAutopsy(opts Options) *Autopsy {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	return &Autopsy{
		seriesStore:      opts.SeriesStore,
		barStore:         opts.BarStore,
		runStore:         opts.RunStore,
		summaryStore:     opts.SummaryStore,
		metricPointStore: opts.MetricPointStore,
		config:           opts.Config,
		outputDir:        opts.OutputDir,
		logger:           logger,
		sufficiency:      NewSufficiencyChecker(opts.BarStore),
		reportGen:        reporting.NewGenerator(opts.SeriesStore, opts.RunStore, opts.SummaryStore),
		clock:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (p *Autopsy) WithClock(clock func() time.Time) *Autopsy {
	p.clock = clock
	p.reportGen = p.reportGen.WithClock(clock)
	return p
}

// Outcome summarizes one pipeline run.
type Outcome struct {
	Status     Status
	RunIDs     map[string]string // series_id -> run_id
	ReportPath string
}

// Run executes the full pipeline and writes output files:
//   - REPORT_AUTOPSY.md
//   - comparison_table.csv
//   - summary_records.csv
//   - metric_points.csv
//
// A failed sufficiency gate still writes the report (with the failed
// checks) and returns StatusInsufficientData without running analysis.
func (p *Autopsy) Run(ctx context.Context) (*Outcome, error) {
	start := time.Now()

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, err
	}
	reportPath := filepath.Join(p.outputDir, ReportFileName)

	series, err := p.seriesStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no series registered")
	}

	// 1. Sufficiency gate before any analysis
	suffResult, err := p.sufficiency.Check(ctx, series, p.config)
	if err != nil {
		return nil, err
	}
	dataQuality := toDataQuality(suffResult)

	if !dataQuality.AllChecksPassed {
		p.logger.Println("Sufficiency checks failed, skipping analysis")
		report, err := p.reportGen.Generate(ctx, p.config)
		if err != nil {
			return nil, err
		}
		report.DataQuality = dataQuality
		if err := os.WriteFile(reportPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
			return nil, err
		}

		observability.RecordReportGenerated()
		observability.RecordRun("insufficient_data", time.Since(start).Seconds())
		return &Outcome{Status: StatusInsufficientData, ReportPath: reportPath}, nil
	}

	// 2. Analyze every series and persist the results
	runIDs := make(map[string]string, len(series))
	var summaries []domain.SummaryRecord
	var allPoints []*domain.MetricPoint

	for _, s := range series {
		result, runID, err := p.analyzeSeries(ctx, s)
		if err != nil {
			observability.RecordRun("failed", time.Since(start).Seconds())
			return nil, err
		}
		runIDs[s.SeriesID] = runID

		summary := result.Summary
		summary.RunID = runID
		summaries = append(summaries, summary)

		points := result.MetricPoints()
		for _, pt := range points {
			pt.RunID = runID
		}
		allPoints = append(allPoints, points...)
	}

	// 3. Report from the persisted runs
	report, err := p.reportGen.Generate(ctx, p.config)
	if err != nil {
		return nil, err
	}
	report.DataQuality = dataQuality

	if err := os.WriteFile(reportPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(p.outputDir, ComparisonFileName),
		[]byte(reporting.RenderComparisonCSV(report.Comparison)), 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(p.outputDir, SummaryFileName),
		[]byte(reporting.RenderSummaryCSV(summaries)), 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(p.outputDir, MetricPointsFileName),
		[]byte(reporting.RenderMetricPointsCSV(allPoints)), 0644); err != nil {
		return nil, err
	}

	observability.RecordReportGenerated()
	observability.RecordRun("complete", time.Since(start).Seconds())
	observability.DefaultMetrics.LastSuccessfulRun.SetToCurrentTime()
	p.logger.Printf("Autopsy complete: %d series, report at %s", len(series), reportPath)

	return &Outcome{
		Status:     StatusComplete,
		RunIDs:     runIDs,
		ReportPath: reportPath,
	}, nil
}

// analyzeSeries runs the engine for one series and persists run,
// summary, and metric points. Reruns over identical data and
// configuration produce the same run_id and are skipped.
func (p *Autopsy) analyzeSeries(ctx context.Context, s *domain.IndexSeries) (*engine.Result, string, error) {
	bars, err := p.barStore.GetBySeriesID(ctx, s.SeriesID)
	if err != nil {
		return nil, "", fmt.Errorf("load bars for %s: %w", s.SeriesID, err)
	}

	barValues := make([]domain.PriceBar, len(bars))
	for i, b := range bars {
		barValues[i] = *b
	}

	result, err := engine.Analyze(p.config, s.SeriesID, barValues)
	if err != nil {
		return nil, "", err
	}

	configDigest := idhash.ComputeConfigDigest(p.config)
	dataDigest := result.Digest()
	runID := idhash.ComputeRunID(s.SeriesID, configDigest, dataDigest)

	run := &domain.AnalysisRun{
		RunID:             runID,
		SeriesID:          s.SeriesID,
		Window:            p.config.Window,
		Threshold:         p.config.Threshold,
		MinBaselineSample: p.config.MinBaselineSample,
		VarianceEpsilon:   p.config.VarianceEpsilon,
		BaselineStartMs:   p.config.Baseline.StartMs,
		BaselineEndMs:     p.config.Baseline.EndMs,
		CrisisStartMs:     p.config.Crisis.StartMs,
		CrisisEndMs:       p.config.Crisis.EndMs,
		BarCount:          len(bars),
		ConfigDigest:      configDigest,
		DataDigest:        dataDigest,
		BreaksFirst:       string(result.Breakdown.BreaksFirst()),
		Ranking:           domain.JoinMetrics(result.Breakdown.Ranking),
		CreatedAt:         p.clock().UnixMilli(),
	}

	if err := p.runStore.Insert(ctx, run); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Identical run already persisted, nothing new to store
			p.logger.Printf("Series %s: run %s already recorded", s.SeriesID, runID)
			return result, runID, nil
		}
		return nil, "", fmt.Errorf("insert run for %s: %w", s.SeriesID, err)
	}

	summary := result.Summary
	summary.RunID = runID
	if err := p.summaryStore.Insert(ctx, &summary); err != nil {
		return nil, "", fmt.Errorf("insert summary for %s: %w", s.SeriesID, err)
	}

	points := result.MetricPoints()
	for _, pt := range points {
		pt.RunID = runID
	}
	if err := p.metricPointStore.InsertBulk(ctx, points); err != nil {
		return nil, "", fmt.Errorf("insert metric points for %s: %w", s.SeriesID, err)
	}

	observability.RecordSeriesAnalyzed()
	for _, b := range result.Breakdown.Breaches {
		if b.Breached {
			observability.RecordBreach(string(b.Metric))
		}
	}

	p.logger.Printf("Series %s: breaks first %s (run %s)",
		s.SeriesID, result.Breakdown.BreaksFirst(), runID)

	return result, runID, nil
}
