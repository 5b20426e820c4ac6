package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"structural-break-lab/internal/domain"
)

// CSVSource reads daily bars from a local CSV file with date,close rows.
// Dates use the 2006-01-02 format. A header row is detected and skipped.
type CSVSource struct {
	path string
}

// NewCSVSource creates a CSV bar source reading from path.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Name returns the source identifier.
func (s *CSVSource) Name() string {
	return SourceCSV
}

// Fetch reads the file and returns normalized bars inside interval.
// The symbol argument is ignored: one file holds one series.
func (s *CSVSource) Fetch(ctx context.Context, _ string, interval domain.DateInterval) ([]domain.PriceBar, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	bars, err := parseCSV(f)
	if err != nil {
		return nil, err
	}

	filtered := bars[:0]
	for _, b := range bars {
		if interval.Contains(b.DateMs) {
			filtered = append(filtered, b)
		}
	}

	return Normalize(filtered)
}

func parseCSV(r io.Reader) ([]domain.PriceBar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var bars []domain.PriceBar
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line+1, err)
		}
		line++

		// Header row tolerance: skip the first row if the date column
		// does not parse as a date.
		dateMs, err := domain.ParseDateMs(strings.TrimSpace(record[0]))
		if err != nil {
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: bad date %q", ErrInvalidBarData, line, record[0])
		}

		closeVal, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad close %q", ErrInvalidBarData, line, record[1])
		}

		bars = append(bars, domain.PriceBar{DateMs: dateMs, Close: closeVal})
	}

	return bars, nil
}
