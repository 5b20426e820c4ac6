// Package main regenerates the study report from persisted runs
// without re-running analysis.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"structural-break-lab/internal/config"
	"structural-break-lab/internal/observability"
	"structural-break-lab/internal/reporting"
	"structural-break-lab/internal/storage/migrations"
	pgstore "structural-break-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	outputDir := flag.String("output-dir", "", "Output directory (overrides config)")
	stdout := flag.Bool("stdout", false, "Print the markdown report instead of writing files")
	flag.Parse()

	logger := log.New(os.Stdout, "[report] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if cfg.Storage.PostgresDSN == "" {
		logger.Fatal("A PostgreSQL DSN is required: reports are built from persisted runs")
	}

	analysisCfg, err := cfg.AnalysisConfig()
	if err != nil {
		logger.Fatalf("Analysis config: %v", err)
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		logger.Fatalf("Connect postgres: %v", err)
	}
	defer pool.Close()
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		logger.Fatalf("Postgres migrations: %v", err)
	}

	generator := reporting.NewGenerator(
		pgstore.NewSeriesStore(pool),
		pgstore.NewRunStore(pool),
		pgstore.NewSummaryStore(pool),
	)

	report, err := generator.Generate(ctx, analysisCfg)
	if err != nil {
		logger.Fatalf("Generate report: %v", err)
	}
	if report.SeriesCount == 0 {
		logger.Fatal("No persisted runs found; run the autopsy first")
	}

	markdown := reporting.RenderMarkdown(report)
	if *stdout {
		fmt.Print(markdown)
		return
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		logger.Fatalf("Create output dir: %v", err)
	}
	reportPath := filepath.Join(cfg.Output.Dir, "REPORT_AUTOPSY.md")
	if err := os.WriteFile(reportPath, []byte(markdown), 0644); err != nil {
		logger.Fatalf("Write report: %v", err)
	}
	comparisonPath := filepath.Join(cfg.Output.Dir, "comparison_table.csv")
	if err := os.WriteFile(comparisonPath,
		[]byte(reporting.RenderComparisonCSV(report.Comparison)), 0644); err != nil {
		logger.Fatalf("Write comparison table: %v", err)
	}

	observability.RecordReportGenerated()
	fmt.Printf("Report written:\n  - %s\n  - %s\n", reportPath, comparisonPath)
}
