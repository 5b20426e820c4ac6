package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"structural-break-lab/internal/domain"
)

// wsTestServer upgrades connections and hands each one to handle.
func wsTestServer(t *testing.T, handle func(conn *websocket.Conn, sub wsSubscribeFrame)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub wsSubscribeFrame
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		if sub.Type != "subscribe" {
			t.Errorf("expected subscribe frame, got %s", sub.Type)
			return
		}
		handle(conn, sub)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestWSSource_Fetch(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn, sub wsSubscribeFrame) {
		if sub.Symbol != "^BSESN" {
			t.Errorf("expected symbol ^BSESN, got %s", sub.Symbol)
		}
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-06", Close: 100.0})
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-07", Close: 101.5})
		conn.WriteJSON(wsFrame{Type: "complete"})
	})
	defer server.Close()

	source := NewWSSource(wsURL(server), nil)
	if source.Name() != SourceWS {
		t.Errorf("Name = %s, want %s", source.Name(), SourceWS)
	}

	bars, err := source.Fetch(context.Background(), "^BSESN", fullInterval())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].DateMs != domain.DateMs(2020, time.January, 6) || bars[0].Close != 100.0 {
		t.Errorf("first bar: %+v", bars[0])
	}
}

func TestWSSource_FiltersOutsideInterval(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn, sub wsSubscribeFrame) {
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2019-12-31", Close: 99.0})
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-06", Close: 100.0})
		conn.WriteJSON(wsFrame{Type: "complete"})
	})
	defer server.Close()

	interval := domain.DateInterval{
		StartMs: domain.DateMs(2020, time.January, 1),
		EndMs:   domain.DateMs(2020, time.January, 31),
	}
	bars, err := NewWSSource(wsURL(server), nil).Fetch(context.Background(), "X", interval)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 100.0 {
		t.Errorf("expected only the in-interval bar, got %+v", bars)
	}
}

func TestWSSource_ErrorFrame(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn, sub wsSubscribeFrame) {
		conn.WriteJSON(wsFrame{Type: "error", Message: "unknown symbol"})
	})
	defer server.Close()

	_, err := NewWSSource(wsURL(server), nil).Fetch(context.Background(), "X", fullInterval())
	if err == nil || !strings.Contains(err.Error(), "unknown symbol") {
		t.Errorf("expected feed error, got %v", err)
	}
}

func TestWSSource_ReconnectsMidStream(t *testing.T) {
	var sessions atomic.Int32
	server := wsTestServer(t, func(conn *websocket.Conn, sub wsSubscribeFrame) {
		if sessions.Add(1) == 1 {
			// Drop the connection after one bar to force a reconnect
			conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-06", Close: 100.0})
			conn.Close()
			return
		}
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-06", Close: 100.0})
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-07", Close: 101.5})
		conn.WriteJSON(wsFrame{Type: "complete"})
	})
	defer server.Close()

	cfg := DefaultWSConfig()
	cfg.ReconnectDelay = time.Millisecond
	cfg.MaxReconnectDelay = 5 * time.Millisecond

	bars, err := NewWSSource(wsURL(server), &cfg).Fetch(context.Background(), "X", fullInterval())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	// The redelivered first bar must be deduplicated
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars after reconnect, got %d", len(bars))
	}
	if sessions.Load() != 2 {
		t.Errorf("expected 2 sessions, got %d", sessions.Load())
	}
}

func TestWSSource_UnknownFramesSkipped(t *testing.T) {
	server := wsTestServer(t, func(conn *websocket.Conn, sub wsSubscribeFrame) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"heartbeat"}`))
		conn.WriteJSON(wsFrame{Type: "bar", Date: "2020-01-06", Close: 100.0})
		conn.WriteJSON(wsFrame{Type: "complete"})
	})
	defer server.Close()

	bars, err := NewWSSource(wsURL(server), nil).Fetch(context.Background(), "X", fullInterval())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 1 {
		t.Errorf("expected 1 bar, got %d", len(bars))
	}
}
