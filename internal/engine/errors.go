package engine

import "errors"

// Engine error taxonomy. Each condition is detected eagerly by the
// first component able to observe it and wrapped with enough context
// (offending interval, computed sample size) to diagnose without
// re-running. No component substitutes a default for an error.
var (
	// ErrInvalidPriceData is returned for non-positive prices, fewer
	// than two observations, or non-increasing dates.
	ErrInvalidPriceData = errors.New("invalid price data")

	// ErrInsufficientBaselineSample is returned when the reference
	// interval yields fewer observations than the configured minimum.
	ErrInsufficientBaselineSample = errors.New("insufficient baseline sample")

	// ErrWindowTooLarge is returned when the rolling window does not
	// fit the available return history (or is below the 2-observation
	// minimum a sample variance needs).
	ErrWindowTooLarge = errors.New("rolling window exceeds available history")

	// ErrDegenerateBaselineVariance is returned when a channel's
	// baseline standard deviation is at or below epsilon, leaving no
	// scale to standardize with.
	ErrDegenerateBaselineVariance = errors.New("degenerate baseline variance")

	// ErrEmptyCrisisWindow is returned when the crisis interval
	// intersects no dates of the normalized series.
	ErrEmptyCrisisWindow = errors.New("empty crisis window")

	// ErrDuplicateSeriesIdentifier is returned when comparison rows
	// collide on SeriesID.
	ErrDuplicateSeriesIdentifier = errors.New("duplicate series identifier")
)
