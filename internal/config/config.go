// Package config loads study configuration from YAML files with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"structural-break-lab/internal/domain"
	"structural-break-lab/internal/feed"
)

// Config captures everything one autopsy study needs: the analysis
// parameters, the series under study, storage backends, and output
// destinations.
type Config struct {
	Study   StudyConfig    `yaml:"study"`
	Series  []SeriesConfig `yaml:"series"`
	Storage StorageConfig  `yaml:"storage"`
	Feed    FeedConfig     `yaml:"feed"`
	Output  OutputConfig   `yaml:"output"`
	Server  ServerConfig   `yaml:"server"`
}

// StudyConfig holds the analysis parameters. Dates use 2006-01-02.
type StudyConfig struct {
	Window            int     `yaml:"window"`
	Threshold         float64 `yaml:"threshold"`
	MinBaselineSample int     `yaml:"minBaselineSample"`
	VarianceEpsilon   float64 `yaml:"varianceEpsilon"`
	BaselineStart     string  `yaml:"baselineStart"`
	BaselineEnd       string  `yaml:"baselineEnd"`
	CrisisStart       string  `yaml:"crisisStart"`
	CrisisEnd         string  `yaml:"crisisEnd"`
}

// SeriesConfig describes one index series to ingest and analyze.
type SeriesConfig struct {
	ID       string `yaml:"id"`
	Symbol   string `yaml:"symbol"`
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
	Source   string `yaml:"source"`  // csv | http | ws | synthetic
	CSVPath  string `yaml:"csvPath"` // for source: csv
	Seed     uint64 `yaml:"seed"`    // for source: synthetic
}

// StorageConfig selects the persistence backends. Empty DSNs switch the
// pipeline to in-memory stores.
type StorageConfig struct {
	PostgresDSN   string `yaml:"postgresDSN"`
	ClickhouseDSN string `yaml:"clickhouseDSN"`
}

// FeedConfig configures the remote bar sources.
type FeedConfig struct {
	HTTPEndpoint string        `yaml:"httpEndpoint"`
	WSEndpoint   string        `yaml:"wsEndpoint"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"maxRetries"`
}

// OutputConfig controls report generation.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig controls the metrics listener.
type ServerConfig struct {
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// Load initialises Config from a YAML file and environment overrides.
// An empty path falls back to the AUTOPSY_CONFIG environment variable;
// with neither set, defaults apply.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AUTOPSY_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Study: StudyConfig{
			Window:            domain.DefaultWindow,
			Threshold:         domain.DefaultThreshold,
			MinBaselineSample: domain.DefaultMinBaselineSample,
			VarianceEpsilon:   domain.DefaultVarianceEpsilon,
			BaselineStart:     "2019-01-01",
			BaselineEnd:       "2019-12-31",
			CrisisStart:       "2020-02-15",
			CrisisEnd:         "2020-04-01",
		},
		Feed: FeedConfig{
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Output: OutputConfig{Dir: "out"},
		Server: ServerConfig{
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTOPSY_POSTGRES_DSN"); v != "" {
		cfg.Storage.PostgresDSN = v
	}
	if v := os.Getenv("AUTOPSY_CLICKHOUSE_DSN"); v != "" {
		cfg.Storage.ClickhouseDSN = v
	}
	if v := os.Getenv("AUTOPSY_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("AUTOPSY_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
}

// Validate checks the study parameters and every series entry.
func (c *Config) Validate() error {
	if _, err := c.AnalysisConfig(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(c.Series))
	for i, s := range c.Series {
		if s.ID == "" {
			return fmt.Errorf("series[%d]: missing id", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("series[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true

		switch s.Source {
		case feed.SourceCSV:
			if s.CSVPath == "" {
				return fmt.Errorf("series %s: csv source needs csvPath", s.ID)
			}
		case feed.SourceHTTP:
			if c.Feed.HTTPEndpoint == "" {
				return fmt.Errorf("series %s: http source needs feed.httpEndpoint", s.ID)
			}
		case feed.SourceWS:
			if c.Feed.WSEndpoint == "" {
				return fmt.Errorf("series %s: ws source needs feed.wsEndpoint", s.ID)
			}
		case feed.SourceSynthetic:
			// Seed 0 is a valid (if degenerate) generator state
		default:
			return fmt.Errorf("series %s: unknown source %q", s.ID, s.Source)
		}
	}

	return nil
}

// AnalysisConfig converts the study section into the engine's
// configuration, parsing the interval dates.
func (c *Config) AnalysisConfig() (domain.AnalysisConfig, error) {
	baseline, err := parseInterval(c.Study.BaselineStart, c.Study.BaselineEnd)
	if err != nil {
		return domain.AnalysisConfig{}, fmt.Errorf("study baseline: %w", err)
	}
	crisis, err := parseInterval(c.Study.CrisisStart, c.Study.CrisisEnd)
	if err != nil {
		return domain.AnalysisConfig{}, fmt.Errorf("study crisis: %w", err)
	}

	cfg := domain.AnalysisConfig{
		Window:            c.Study.Window,
		Threshold:         c.Study.Threshold,
		MinBaselineSample: c.Study.MinBaselineSample,
		VarianceEpsilon:   c.Study.VarianceEpsilon,
		Baseline:          baseline,
		Crisis:            crisis,
	}
	if err := cfg.Validate(); err != nil {
		return domain.AnalysisConfig{}, err
	}
	return cfg, nil
}

func parseInterval(start, end string) (domain.DateInterval, error) {
	startMs, err := domain.ParseDateMs(start)
	if err != nil {
		return domain.DateInterval{}, fmt.Errorf("bad start date %q: %w", start, err)
	}
	endMs, err := domain.ParseDateMs(end)
	if err != nil {
		return domain.DateInterval{}, fmt.Errorf("bad end date %q: %w", end, err)
	}
	return domain.DateInterval{StartMs: startMs, EndMs: endMs}, nil
}
