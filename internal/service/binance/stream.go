package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"Quantra/internal/domain/models"
	drepo "Quantra/internal/domain/repository"
	applogger "Quantra/pkg/logger"
)

// Stream implements a MarketStream over the Binance trade WebSocket.
type Stream struct {
	wsURL          string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	subID     int
}

// New creates a Binance MarketStream.
func New(wsURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.MarketStream {
	if wsURL == "" {
		wsURL = "wss://stream.binance.com:9443/ws"
	}
	return &Stream{
		wsURL:          wsURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	if s.l != nil {
		s.l.Info("binance stream connected", applogger.String("url", s.wsURL))
	}
	return nil
}

// Subscribe sends one SUBSCRIBE frame for all configured symbols.
func (s *Stream) Subscribe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil || !s.connected {
		return fmt.Errorf("binance not connected")
	}
	params := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		params = append(params, strings.ToLower(sym)+"@trade")
	}
	s.subID++
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": params,
		"id":     s.subID,
	}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if s.l != nil {
		s.l.Info("binance subscribed", applogger.Int("streams", len(params)))
	}
	return nil
}

// trade event frame:
// {"e":"trade","s":"BTCUSDT","p":"100.5","q":"0.01","T":1700000000000}
type wsTrade struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Qty    string `json:"q"`
	TimeMs int64  `json:"T"`
}

// Read streams Tick events and errors.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("binance conn nil")
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("binance read: %w", err)
					return
				}
				t, ok := parseTradeFrame(b)
				if !ok {
					continue
				}
				select {
				case ticks <- t:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return ticks, errs
}

func parseTradeFrame(b []byte) (*models.Tick, bool) {
	var m wsTrade
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, false
	}
	if m.Event != "trade" || m.Symbol == "" {
		return nil, false
	}
	price, qty := parseF(m.Price), parseF(m.Qty)
	if price <= 0 {
		return nil, false
	}
	return &models.Tick{
		Symbol:    m.Symbol,
		Timestamp: m.TimeMs / 1000,
		Price:     price,
		Volume:    qty,
	}, true
}

func parseF(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// Reconnect closes and reconnects.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	time.Sleep(s.reconnectDelay)
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WS connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
