package pipeline

import (
	"context"
	"fmt"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/feed"
	"structural-break-lab/internal/storage"
)

// SeriesFixture pairs a series registration with its generator seed.
type SeriesFixture struct {
	Series domain.IndexSeries
	Seed   uint64
}

// Fixtures lists the built-in synthetic study: two Indian index proxies
// through the 2020 crash.
var Fixtures = []SeriesFixture{
	{
		Series: domain.IndexSeries{
			SeriesID: "nifty50",
			Symbol:   "^NSEI",
			Name:     "NIFTY 50",
			Currency: "INR",
			Source:   feed.SourceSynthetic,
		},
		Seed: 1001,
	},
	{
		Series: domain.IndexSeries{
			SeriesID: "sensex",
			Symbol:   "^BSESN",
			Name:     "S&P BSE SENSEX",
			Currency: "INR",
			Source:   feed.SourceSynthetic,
		},
		Seed: 110,
	},
}

// LoadFixtures registers the fixture series and ingests their synthetic
// bar histories through the checkpointed feed runner.
func LoadFixtures(
	ctx context.Context,
	seriesStore storage.SeriesStore,
	barStore storage.PriceBarStore,
	checkpoints storage.CheckpointStore,
) error {
	interval := domain.DateInterval{
		StartMs: domain.DateMs(2018, 1, 1),
		EndMs:   domain.DateMs(2020, 6, 30),
	}

	for _, f := range Fixtures {
		series := f.Series
		if err := seriesStore.Insert(ctx, &series); err != nil {
			return fmt.Errorf("register series %s: %w", series.SeriesID, err)
		}

		runner := feed.NewRunner(feed.RunnerOptions{
			Source:      feed.NewSyntheticSource(f.Seed),
			Series:      &series,
			BarStore:    barStore,
			Checkpoints: checkpoints,
		})
		if _, err := runner.Run(ctx, interval); err != nil {
			return fmt.Errorf("ingest series %s: %w", series.SeriesID, err)
		}
	}

	return nil
}
