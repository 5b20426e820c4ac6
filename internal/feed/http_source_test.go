package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"structural-break-lab/internal/domain"
)

func TestHTTPSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "^NSEI" {
			t.Errorf("expected symbol ^NSEI, got %s", got)
		}
		if got := r.URL.Query().Get("start"); got != "2020-01-06" {
			t.Errorf("expected start 2020-01-06, got %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2020-01-07","close":101.5},
			{"date":"2020-01-06","close":100.0},
			{"date":"2020-01-08","close":102.25}
		]`))
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL)
	if source.Name() != SourceHTTP {
		t.Errorf("Name = %s, want %s", source.Name(), SourceHTTP)
	}

	interval := domain.DateInterval{
		StartMs: domain.DateMs(2020, time.January, 6),
		EndMs:   domain.DateMs(2020, time.January, 8),
	}
	bars, err := source.Fetch(context.Background(), "^NSEI", interval)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	// Responses arrive unordered; Normalize must sort them
	if bars[0].Close != 100.0 || bars[2].Close != 102.25 {
		t.Errorf("bars not sorted by date: %+v", bars)
	}
}

func TestHTTPSource_FiltersOutsideInterval(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"date":"2020-01-03","close":99.0},
			{"date":"2020-01-06","close":100.0},
			{"date":"2020-01-09","close":103.0}
		]`))
	}))
	defer server.Close()

	interval := domain.DateInterval{
		StartMs: domain.DateMs(2020, time.January, 6),
		EndMs:   domain.DateMs(2020, time.January, 8),
	}
	bars, err := NewHTTPSource(server.URL).Fetch(context.Background(), "X", interval)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 100.0 {
		t.Errorf("expected only the in-interval bar, got %+v", bars)
	}
}

func TestHTTPSource_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"date":"2020-01-06","close":100.0}]`))
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL,
		WithRetryDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond))

	bars, err := source.Fetch(context.Background(), "X", fullInterval())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestHTTPSource_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, WithRetryDelay(time.Millisecond))
	if _, err := source.Fetch(context.Background(), "X", fullInterval()); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected retry after 429, got %d attempts", calls.Load())
	}
}

func TestHTTPSource_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL, WithRetryDelay(time.Millisecond))
	if _, err := source.Fetch(context.Background(), "X", fullInterval()); err == nil {
		t.Fatal("expected error for 404")
	}
	if calls.Load() != 1 {
		t.Errorf("client errors must not be retried, got %d attempts", calls.Load())
	}
}

func TestHTTPSource_ExhaustsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHTTPSource(server.URL,
		WithMaxRetries(2),
		WithRetryDelay(time.Millisecond))

	if _, err := source.Fetch(context.Background(), "X", fullInterval()); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}
