package domain

import "time"

// PriceBar represents one daily adjusted-close observation.
// Corresponds to price_bars table in PostgreSQL.
type PriceBar struct {
	SeriesID  string  // owning series identifier
	DateMs    int64   // trading day, Unix milliseconds at UTC midnight
	Close     float64 // adjusted close price
	CreatedAt int64   // record creation timestamp (ms)
}

// ReturnPoint represents one daily logarithmic return.
// Return series are derived once from price bars and never mutated.
type ReturnPoint struct {
	DateMs int64   // trading day, Unix milliseconds at UTC midnight
	Value  float64 // ln(close[t]) - ln(close[t-1])
}

// IndexSeries represents one analyzed market index.
// Corresponds to index_series table in PostgreSQL.
type IndexSeries struct {
	SeriesID  string // PRIMARY KEY, human-readable or deterministic hash
	Symbol    string // vendor symbol, e.g. "^NSEI"
	Name      string // display name, e.g. "NIFTY 50"
	Currency  string // quote currency, e.g. "INR"
	Source    string // bar source that supplied the data: csv | http | ws | synthetic
	CreatedAt int64  // record creation timestamp (ms)
}

// DateInterval is a closed interval of trading days [StartMs, EndMs].
type DateInterval struct {
	StartMs int64
	EndMs   int64
}

// Contains reports whether ms falls inside the closed interval.
func (iv DateInterval) Contains(ms int64) bool {
	return ms >= iv.StartMs && ms <= iv.EndMs
}

// Valid reports whether the interval is well-formed.
func (iv DateInterval) Valid() bool {
	return iv.StartMs > 0 && iv.StartMs <= iv.EndMs
}

// String renders the interval as "2006-01-02..2006-01-02".
func (iv DateInterval) String() string {
	return FormatDateMs(iv.StartMs) + ".." + FormatDateMs(iv.EndMs)
}

// DateMs returns the Unix-millisecond timestamp of a civil date at UTC midnight.
func DateMs(year int, month time.Month, day int) int64 {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).UnixMilli()
}

// FormatDateMs renders a Unix-millisecond timestamp as 2006-01-02 in UTC.
func FormatDateMs(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02")
}

// ParseDateMs parses a 2006-01-02 date into Unix milliseconds at UTC midnight.
func ParseDateMs(s string) (int64, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return 0, err
	}
	return t.UnixMilli(), nil
}
