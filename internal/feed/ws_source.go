package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"structural-break-lab/internal/domain"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// MaxReconnects bounds reconnect attempts within one fetch.
	MaxReconnects int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		MaxReconnects:     3,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// WSSource streams daily bars from a WebSocket bar feed.
//
// Each Fetch opens one session: it sends a subscribe frame
// {"type":"subscribe","symbol":S,"start":"2006-01-02","end":"2006-01-02"}
// and collects {"type":"bar",...} frames until the server sends
// {"type":"complete"}. Mid-stream disconnects trigger a reconnect with
// exponential backoff and a fresh subscribe; already-received bars are
// kept and Normalize drops redelivered duplicates.
type WSSource struct {
	endpoint string
	config   WSConfig
}

// NewWSSource creates a WebSocket bar source.
func NewWSSource(endpoint string, config *WSConfig) *WSSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSSource{endpoint: endpoint, config: cfg}
}

// Name returns the source identifier.
func (s *WSSource) Name() string {
	return SourceWS
}

// wsSubscribeFrame is the client-to-server subscription request.
type wsSubscribeFrame struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
	Start  string `json:"start"`
	End    string `json:"end"`
}

// wsFrame is the server-to-client message envelope.
type wsFrame struct {
	Type    string  `json:"type"` // bar | complete | error
	Date    string  `json:"date,omitempty"`
	Close   float64 `json:"close,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Fetch streams all bars for symbol inside interval.
func (s *WSSource) Fetch(ctx context.Context, symbol string, interval domain.DateInterval) ([]domain.PriceBar, error) {
	session := &wsSession{
		source:   s,
		symbol:   symbol,
		interval: interval,
		done:     make(chan struct{}),
	}
	defer session.close()

	bars, err := session.run(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(bars)
}

// wsSession holds the connection state of one streaming fetch.
type wsSession struct {
	source   *WSSource
	symbol   string
	interval domain.DateInterval

	conn   *websocket.Conn
	connMu sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (w *wsSession) run(ctx context.Context) ([]domain.PriceBar, error) {
	cfg := w.source.config

	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	w.wg.Add(1)
	go w.pingLoop()

	if err := w.subscribe(); err != nil {
		return nil, err
	}

	var bars []domain.PriceBar
	reconnects := 0
	reconnectDelay := cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		w.connMu.Lock()
		conn := w.conn
		w.connMu.Unlock()

		conn.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			// Connection error - reconnect with exponential backoff
			// and resubscribe
			if reconnects >= cfg.MaxReconnects {
				return nil, fmt.Errorf("websocket read after %d reconnects: %w", reconnects, err)
			}
			reconnects++

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(reconnectDelay):
			}
			reconnectDelay = reconnectDelay * 2
			if reconnectDelay > cfg.MaxReconnectDelay {
				reconnectDelay = cfg.MaxReconnectDelay
			}

			if err := w.connect(ctx); err != nil {
				return nil, err
			}
			if err := w.subscribe(); err != nil {
				return nil, err
			}
			continue
		}

		var frame wsFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			return nil, fmt.Errorf("%w: unmarshal frame: %v", ErrInvalidBarData, err)
		}

		switch frame.Type {
		case "bar":
			dateMs, err := domain.ParseDateMs(frame.Date)
			if err != nil {
				return nil, fmt.Errorf("%w: bad date %q", ErrInvalidBarData, frame.Date)
			}
			if !w.interval.Contains(dateMs) {
				continue
			}
			bars = append(bars, domain.PriceBar{DateMs: dateMs, Close: frame.Close})
		case "complete":
			return bars, nil
		case "error":
			return nil, fmt.Errorf("feed error: %s", frame.Message)
		default:
			// Unknown frame types are skipped for forward compatibility
		}
	}
}

func (w *wsSession) connect(ctx context.Context) error {
	w.connMu.Lock()
	defer w.connMu.Unlock()

	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, w.source.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	w.conn = conn
	return nil
}

func (w *wsSession) subscribe() error {
	frame := wsSubscribeFrame{
		Type:   "subscribe",
		Symbol: w.symbol,
		Start:  domain.FormatDateMs(w.interval.StartMs),
		End:    domain.FormatDateMs(w.interval.EndMs),
	}

	w.connMu.Lock()
	defer w.connMu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(w.source.config.WriteTimeout))
	if err := w.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (w *wsSession) pingLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.source.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.connMu.Lock()
			if w.conn != nil {
				w.conn.SetWriteDeadline(time.Now().Add(w.source.config.WriteTimeout))
				if err := w.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, the reader handles reconnect
				}
			}
			w.connMu.Unlock()
		}
	}
}

func (w *wsSession) close() {
	w.closeOnce.Do(func() {
		close(w.done)

		w.connMu.Lock()
		if w.conn != nil {
			w.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			w.conn.Close()
		}
		w.connMu.Unlock()

		w.wg.Wait()
	})
}
