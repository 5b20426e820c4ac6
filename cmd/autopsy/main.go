// Package main runs the full structural break study: ingestion,
// sufficiency gate, per-series analysis, persistence, and reporting.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"structural-break-lab/internal/config"
	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/feed"
	"structural-break-lab/internal/observability"
	"structural-break-lab/internal/pipeline"
	"structural-break-lab/internal/storage"
	chstore "structural-break-lab/internal/storage/clickhouse"
	"structural-break-lab/internal/storage/memory"
	"structural-break-lab/internal/storage/migrations"
	pgstore "structural-break-lab/internal/storage/postgres"
	"structural-break-lab/internal/verification"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration")
	useFixtures := flag.Bool("use-fixtures", false, "Load the built-in synthetic study instead of configured series")
	outputDir := flag.String("output-dir", "", "Output directory (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (overrides config)")
	verify := flag.Bool("verify", false, "Replay every persisted run after analysis and report divergences")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config, empty to disable)")
	fixedClock := flag.String("fixed-clock", "", "RFC3339 timestamp to stamp on runs and reports, for reproducible output")
	flag.Parse()

	logger := log.New(os.Stdout, "[autopsy] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}
	if *clickhouseDSN != "" {
		cfg.Storage.ClickhouseDSN = *clickhouseDSN
	}
	if *metricsAddr != "" {
		cfg.Server.MetricsAddress = *metricsAddr
	}

	analysisCfg, err := cfg.AnalysisConfig()
	if err != nil {
		logger.Fatalf("Analysis config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Server.MetricsAddress != "" {
		startMetricsServer(logger, cfg.Server.MetricsAddress)
	}

	stores, cleanup, err := wireStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Storage: %v", err)
	}
	defer cleanup()

	// 1. Ingest
	if *useFixtures {
		logger.Println("Loading built-in synthetic fixtures")
		if err := pipeline.LoadFixtures(ctx, stores.series, stores.bars, stores.checkpoints); err != nil {
			logger.Fatalf("Load fixtures: %v", err)
		}
	} else {
		if err := ingestConfigured(ctx, logger, cfg, analysisCfg, stores); err != nil {
			logger.Fatalf("Ingest: %v", err)
		}
	}

	// 2. Analyze and report
	autopsy := pipeline.NewAutopsy(pipeline.Options{
		SeriesStore:      stores.series,
		BarStore:         stores.bars,
		RunStore:         stores.runs,
		SummaryStore:     stores.summaries,
		MetricPointStore: stores.points,
		Config:           analysisCfg,
		OutputDir:        cfg.Output.Dir,
		Logger:           logger,
	})
	if *fixedClock != "" {
		ts, err := time.Parse(time.RFC3339, *fixedClock)
		if err != nil {
			logger.Fatalf("Parse --fixed-clock: %v", err)
		}
		autopsy = autopsy.WithClock(func() time.Time { return ts })
	}

	outcome, err := autopsy.Run(ctx)
	if err != nil {
		logger.Fatalf("Pipeline: %v", err)
	}

	fmt.Printf("Status: %s\n", outcome.Status)
	fmt.Printf("Report: %s\n", outcome.ReportPath)
	if outcome.Status != pipeline.StatusComplete {
		os.Exit(2)
	}
	for seriesID, runID := range outcome.RunIDs {
		fmt.Printf("  %s: run %s\n", seriesID, runID)
	}

	// 3. Optional replay verification
	if *verify {
		verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			RunStore:     stores.runs,
			BarStore:     stores.bars,
			SummaryStore: stores.summaries,
		})
		report, err := verifier.VerifyAll(ctx)
		if err != nil {
			logger.Fatalf("Verification: %v", err)
		}
		fmt.Printf("Verification: %d/%d runs reproduced\n", report.MatchedRuns, report.TotalRuns)
		for _, r := range report.Results {
			if r.Match {
				continue
			}
			fmt.Printf("  DIVERGENT run %s (%s):\n", r.RunID, r.SeriesID)
			for _, d := range r.Divergences {
				fmt.Printf("    %s: stored %v, replayed %v\n", d.Field, d.Expected, d.Actual)
			}
		}
		if report.DivergentRuns > 0 {
			os.Exit(3)
		}
	}
}

// studyStores groups the storage backends the pipeline reads and writes.
type studyStores struct {
	series      storage.SeriesStore
	bars        storage.PriceBarStore
	runs        storage.RunStore
	summaries   storage.SummaryStore
	points      storage.MetricPointStore
	checkpoints storage.CheckpointStore
}

// wireStores selects backends from the configured DSNs: PostgreSQL for
// relational state, ClickHouse for metric points, memory when a DSN is
// absent. Migrations run on connect.
func wireStores(ctx context.Context, cfg *config.Config) (*studyStores, func(), error) {
	stores := &studyStores{
		series:      memory.NewSeriesStore(),
		bars:        memory.NewPriceBarStore(),
		runs:        memory.NewRunStore(),
		summaries:   memory.NewSummaryStore(),
		points:      memory.NewMetricPointStore(),
		checkpoints: memory.NewCheckpointStore(),
	}
	cleanup := func() {}

	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		stores.series = pgstore.NewSeriesStore(pool)
		stores.bars = pgstore.NewPriceBarStore(pool)
		stores.runs = pgstore.NewRunStore(pool)
		stores.summaries = pgstore.NewSummaryStore(pool)
		stores.checkpoints = pgstore.NewCheckpointStore(pool)
		cleanup = pool.Close
	}

	if cfg.Storage.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.points = chstore.NewMetricPointStore(conn)
		prev := cleanup
		cleanup = func() {
			conn.Close()
			prev()
		}
	}

	return stores, cleanup, nil
}

// ingestConfigured runs the checkpointed feed for every configured series.
func ingestConfigured(ctx context.Context, logger *log.Logger, cfg *config.Config, analysisCfg domain.AnalysisConfig, stores *studyStores) error {
	if len(cfg.Series) == 0 {
		return fmt.Errorf("no series configured; use --use-fixtures for the built-in study")
	}

	interval := studyInterval(analysisCfg)
	for i := range cfg.Series {
		sc := cfg.Series[i]
		source, err := sourceFor(sc, cfg.Feed)
		if err != nil {
			return err
		}

		series := &domain.IndexSeries{
			SeriesID: sc.ID,
			Symbol:   sc.Symbol,
			Name:     sc.Name,
			Currency: sc.Currency,
			Source:   sc.Source,
		}
		if err := stores.series.Insert(ctx, series); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("register series %s: %w", sc.ID, err)
		}

		runner := feed.NewRunner(feed.RunnerOptions{
			Source:      source,
			Series:      series,
			BarStore:    stores.bars,
			Checkpoints: stores.checkpoints,
			Logger:      logger,
		})
		n, err := runner.Run(ctx, interval)
		if err != nil {
			return fmt.Errorf("ingest series %s: %w", sc.ID, err)
		}
		logger.Printf("Series %s: ingested %d bars", sc.ID, n)
	}
	return nil
}

// sourceFor builds the bar source a series is configured with.
func sourceFor(sc config.SeriesConfig, fc config.FeedConfig) (feed.BarSource, error) {
	switch sc.Source {
	case feed.SourceCSV:
		return feed.NewCSVSource(sc.CSVPath), nil
	case feed.SourceHTTP:
		var opts []feed.SourceOption
		if fc.Timeout > 0 {
			opts = append(opts, feed.WithTimeout(fc.Timeout))
		}
		if fc.MaxRetries > 0 {
			opts = append(opts, feed.WithMaxRetries(fc.MaxRetries))
		}
		return feed.NewHTTPSource(fc.HTTPEndpoint, opts...), nil
	case feed.SourceWS:
		return feed.NewWSSource(fc.WSEndpoint, nil), nil
	case feed.SourceSynthetic:
		return feed.NewSyntheticSource(sc.Seed), nil
	default:
		return nil, fmt.Errorf("series %s: unknown source %q", sc.ID, sc.Source)
	}
}

// studyInterval covers everything the analysis can consume. Rolling
// windows need history before the baseline opens, so the interval is
// open-ended on the left and closes at the crisis end.
func studyInterval(cfg domain.AnalysisConfig) domain.DateInterval {
	return domain.DateInterval{
		StartMs: 0,
		EndMs:   cfg.Crisis.EndMs,
	}
}

func startMetricsServer(logger *log.Logger, addr string) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		logger.Printf("Starting metrics server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			logger.Printf("Metrics server error: %v", err)
		}
	}()
}
