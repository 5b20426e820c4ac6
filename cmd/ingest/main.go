// Package main ingests price bars for the configured series without
// running analysis. Useful for populating storage ahead of a study.
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

	"structural-break-lab/internal/config"
	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/feed"
	"structural-break-lab/internal/observability"
	"structural-break-lab/internal/storage"
	"structural-break-lab/internal/storage/memory"
	"structural-break-lab/internal/storage/migrations"
	pgstore "structural-break-lab/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (overrides config)")
	seriesID := flag.String("series", "", "Ingest only this series ID (empty for all)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable)")
	flag.Parse()

	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Load config: %v", err)
	}
	if *postgresDSN != "" {
		cfg.Storage.PostgresDSN = *postgresDSN
	}

	analysisCfg, err := cfg.AnalysisConfig()
	if err != nil {
		logger.Fatalf("Analysis config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	var (
		seriesStore storage.SeriesStore
		barStore    storage.PriceBarStore
		checkpoints storage.CheckpointStore
	)
	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			logger.Fatalf("Connect postgres: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("Postgres migrations: %v", err)
		}
		seriesStore = pgstore.NewSeriesStore(pool)
		barStore = pgstore.NewPriceBarStore(pool)
		checkpoints = pgstore.NewCheckpointStore(pool)
	} else {
		logger.Println("No PostgreSQL DSN configured; ingesting into memory (discarded on exit)")
		seriesStore = memory.NewSeriesStore()
		barStore = memory.NewPriceBarStore()
		checkpoints = memory.NewCheckpointStore()
	}

	// Ingest everything through the crisis end; rolling windows need
	// history before the baseline opens.
	interval := domain.DateInterval{StartMs: 0, EndMs: analysisCfg.Crisis.EndMs}

	total := 0
	for i := range cfg.Series {
		sc := cfg.Series[i]
		if *seriesID != "" && sc.ID != *seriesID {
			continue
		}

		source, err := sourceFor(sc, cfg.Feed)
		if err != nil {
			logger.Fatalf("Source: %v", err)
		}

		series := &domain.IndexSeries{
			SeriesID: sc.ID,
			Symbol:   sc.Symbol,
			Name:     sc.Name,
			Currency: sc.Currency,
			Source:   sc.Source,
		}
		if err := seriesStore.Insert(ctx, series); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatalf("Register series %s: %v", sc.ID, err)
		}

		runner := feed.NewRunner(feed.RunnerOptions{
			Source:      source,
			Series:      series,
			BarStore:    barStore,
			Checkpoints: checkpoints,
			Logger:      logger,
		})
		n, err := runner.Run(ctx, interval)
		if err != nil {
			logger.Fatalf("Ingest series %s: %v", sc.ID, err)
		}
		logger.Printf("Series %s: ingested %d bars", sc.ID, n)
		total += n
	}

	fmt.Printf("Ingested %d bars\n", total)
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
