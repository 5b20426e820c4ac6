package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"structural-break-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPSource fetches daily bars from a JSON bar API over HTTP.
// The endpoint is queried as GET {endpoint}?symbol=S&start=2006-01-02&end=2006-01-02
// and must respond with a JSON array of {"date": "2006-01-02", "close": 123.45}.
type HTTPSource struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

// SourceOption configures HTTPSource.
type SourceOption func(*HTTPSource)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) SourceOption {
	return func(s *HTTPSource) {
		s.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) SourceOption {
	return func(s *HTTPSource) {
		s.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(s *HTTPSource) {
		s.client = client
	}
}

// NewHTTPSource creates a new HTTP bar source.
func NewHTTPSource(endpoint string, opts ...SourceOption) *HTTPSource {
	s := &HTTPSource{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the source identifier.
func (s *HTTPSource) Name() string {
	return SourceHTTP
}

// barPayload is the wire representation of one daily bar.
type barPayload struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// Fetch retrieves bars with retries and exponential backoff.
func (s *HTTPSource) Fetch(ctx context.Context, symbol string, interval domain.DateInterval) ([]domain.PriceBar, error) {
	reqURL, err := s.buildURL(symbol, interval)
	if err != nil {
		return nil, err
	}

	delay := s.retryDelay
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			// Exponential backoff
			delay = time.Duration(float64(delay) * s.backoffMult)
			if delay > s.maxDelay {
				delay = s.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		// Handle rate limiting
		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
			continue
		}

		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		var payload []barPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		return s.convert(payload, interval)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *HTTPSource) buildURL(symbol string, interval domain.DateInterval) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("symbol", symbol)
	q.Set("start", domain.FormatDateMs(interval.StartMs))
	q.Set("end", domain.FormatDateMs(interval.EndMs))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *HTTPSource) convert(payload []barPayload, interval domain.DateInterval) ([]domain.PriceBar, error) {
	bars := make([]domain.PriceBar, 0, len(payload))
	for _, p := range payload {
		dateMs, err := domain.ParseDateMs(p.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrInvalidBarData, p.Date)
		}
		if !interval.Contains(dateMs) {
			continue
		}
		bars = append(bars, domain.PriceBar{DateMs: dateMs, Close: p.Close})
	}
	return Normalize(bars)
}
