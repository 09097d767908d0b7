package quotes

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chart-terminal/internal/config"
)

// Quote is the latest trade seen for a symbol on the stream.
type Quote struct {
	Symbol    string  `json:"sym"`
	Price     float64 `json:"p"`
	Size      float64 `json:"s"`
	Timestamp int64   `json:"t"` // unix ms
}

// Stream keeps the most recent quote per subscribed symbol from the
// provider's websocket feed. The orchestrator consults it to decide
// whether the primary store's freshest row has fallen behind.
type Stream struct {
	wsURL  string
	apiKey string
	log    *zap.Logger

	mu         sync.RWMutex
	latest     map[string]Quote
	subscribed map[string]struct{}
	conn       *websocket.Conn
}

// NewStream creates a quote stream client. Run must be called to connect.
func NewStream(wsURL, apiKey string, log *zap.Logger) *Stream {
	return &Stream{
		wsURL:      wsURL,
		apiKey:     apiKey,
		log:        log,
		latest:     make(map[string]Quote),
		subscribed: make(map[string]struct{}),
	}
}

// Subscribe registers a symbol of interest. Safe before or after Run.
func (s *Stream) Subscribe(symbol string) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return
	}

	s.mu.Lock()
	_, already := s.subscribed[symbol]
	s.subscribed[symbol] = struct{}{}
	conn := s.conn
	s.mu.Unlock()

	if !already && conn != nil {
		s.sendSubscribe(conn, []string{symbol})
	}
}

// Latest returns the most recent quote for a symbol, if any arrived.
func (s *Stream) Latest(symbol string) (Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.latest[strings.ToUpper(symbol)]
	return q, ok
}

// Run connects and consumes the feed until ctx is cancelled, redialing
// after connection failures.
func (s *Stream) Run(ctx context.Context) {
	for {
		if err := s.consume(ctx); err != nil {
			s.log.Warn("quote stream disconnected", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(config.WebsocketReconnectDelaySec * time.Second):
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(config.WebsocketReadLimitBytes)

	if s.apiKey != "" {
		auth := map[string]string{"action": "auth", "params": s.apiKey}
		if err := conn.WriteJSON(auth); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.conn = conn
	symbols := make([]string, 0, len(s.subscribed))
	for sym := range s.subscribed {
		symbols = append(symbols, sym)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	if len(symbols) > 0 {
		s.sendSubscribe(conn, symbols)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var batch []Quote
		if err := json.Unmarshal(data, &batch); err != nil {
			// Single-object frames and status messages are not quote batches
			continue
		}

		s.mu.Lock()
		for _, q := range batch {
			if q.Symbol == "" || q.Price <= 0 {
				continue
			}
			q.Symbol = strings.ToUpper(q.Symbol)
			if prev, ok := s.latest[q.Symbol]; !ok || q.Timestamp >= prev.Timestamp {
				s.latest[q.Symbol] = q
			}
		}
		s.mu.Unlock()
	}
}

func (s *Stream) sendSubscribe(conn *websocket.Conn, symbols []string) {
	msg := map[string]string{"action": "subscribe", "params": "T." + strings.Join(symbols, ",T.")}
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn("failed to send subscribe", zap.Strings("symbols", symbols), zap.Error(err))
	}
}
