package domain

import "fmt"

// Default analysis parameters. Window covers one trading month; the
// threshold is two baseline standard deviations.
const (
	DefaultWindow            = 21
	DefaultThreshold         = 2.0
	DefaultMinBaselineSample = 60
	DefaultVarianceEpsilon   = 1e-12
)

// AnalysisConfig carries every tunable of one analysis run. Components
// take it explicitly; there are no package-level knobs.
type AnalysisConfig struct {
	Window            int          // rolling window length in trading days
	Threshold         float64      // significance threshold on |z|
	MinBaselineSample int          // minimum baseline observations
	VarianceEpsilon   float64      // smallest usable baseline stddev
	Baseline          DateInterval // reference ("normal") period
	Crisis            DateInterval // stress period under autopsy
}

// DefaultAnalysisConfig returns the canonical study configuration:
// calendar-2019 baseline against the early-2020 crash window.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		Window:            DefaultWindow,
		Threshold:         DefaultThreshold,
		MinBaselineSample: DefaultMinBaselineSample,
		VarianceEpsilon:   DefaultVarianceEpsilon,
		Baseline: DateInterval{
			StartMs: DateMs(2019, 1, 1),
			EndMs:   DateMs(2019, 12, 31),
		},
		Crisis: DateInterval{
			StartMs: DateMs(2020, 2, 15),
			EndMs:   DateMs(2020, 4, 1),
		},
	}
}

// Validate rejects malformed configurations eagerly, before any data is
// touched.
func (c AnalysisConfig) Validate() error {
	if c.Window < 2 {
		return fmt.Errorf("analysis config: window %d, need at least 2", c.Window)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("analysis config: threshold %.4f, need > 0", c.Threshold)
	}
	if c.MinBaselineSample < 1 {
		return fmt.Errorf("analysis config: min baseline sample %d, need at least 1", c.MinBaselineSample)
	}
	if c.VarianceEpsilon <= 0 {
		return fmt.Errorf("analysis config: variance epsilon %g, need > 0", c.VarianceEpsilon)
	}
	if !c.Baseline.Valid() {
		return fmt.Errorf("analysis config: baseline interval %s is not valid", c.Baseline)
	}
	if !c.Crisis.Valid() {
		return fmt.Errorf("analysis config: crisis interval %s is not valid", c.Crisis)
	}
	return nil
}
