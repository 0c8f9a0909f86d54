// Package coingecko implements the upstream price feed: a WebSocket
// push channel plus a REST bulk-snapshot client.
package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"DipWatch/internal/domain/models"
	drepo "DipWatch/internal/domain/repository"
	applogger "DipWatch/pkg/logger"

	"github.com/gorilla/websocket"
)

var errNotConnected = errors.New("coingecko: not connected")

// StreamConfig holds the push channel settings.
type StreamConfig struct {
	URL            string
	APIKey         string
	Underlyings    []models.Underlying
	ReconnectDelay time.Duration
	PingInterval   time.Duration
}

// Stream implements a MarketStream backed by the CoinGecko price
// WebSocket.
type Stream struct {
	cfg StreamConfig
	log *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	done      chan struct{} // closed when the current connection ends
	connected bool

	// writeMu serializes control and subscribe writes; the websocket
	// connection allows one concurrent writer.
	writeMu sync.Mutex
}

// NewStream creates a new CoinGecko MarketStream.
func NewStream(cfg StreamConfig, log *applogger.Logger) drepo.MarketStream {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 1500 * time.Millisecond
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	return &Stream{cfg: cfg, log: log}
}

// Connect establishes the WebSocket connection.
func (s *Stream) Connect(ctx context.Context) error {
	u := s.cfg.URL
	if s.cfg.APIKey != "" {
		u += "?x_cg_demo_api_key=" + s.cfg.APIKey
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.done = make(chan struct{})
	s.connected = true
	s.mu.Unlock()

	s.log.Info("feed connected", applogger.String("url", s.cfg.URL))
	return nil
}

// session snapshots the current connection and its lifetime channel.
func (s *Stream) session() (*websocket.Conn, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil, nil
	}
	return s.conn, s.done
}

// Subscribe asks the feed for updates on the configured underlyings.
func (s *Stream) Subscribe(ctx context.Context) error {
	conn, _ := s.session()
	if conn == nil {
		return errNotConnected
	}
	ids := make([]string, 0, len(s.cfg.Underlyings))
	for _, u := range s.cfg.Underlyings {
		ids = append(ids, string(u))
	}
	msg := map[string]interface{}{"type": "subscribe", "ids": ids}

	s.writeMu.Lock()
	err := conn.WriteJSON(msg)
	s.writeMu.Unlock()
	if err != nil {
		return err
	}
	s.log.Info("feed subscribed", applogger.Any("ids", ids))
	return nil
}

// pushFrame covers both shapes the push channel delivers: a single
// tick or a bulk snapshot keyed by underlying.
type pushFrame struct {
	Underlying models.Underlying       `json:"underlyingId"`
	Price      float64                 `json:"price"`
	Change24h  float64                 `json:"change24h"`
	Timestamp  int64                   `json:"timestamp"`
	Volume     float64                 `json:"volume"`
	Prices     map[string]models.Quote `json:"prices"`
}

// Read streams ticks and errors for the current connection. Malformed
// frames are dropped, never surfaced. Both loops end with the
// connection: Close, Reconnect, or a read error retires them, so each
// reconnect cycle starts from zero goroutines.
func (s *Stream) Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error) {
	ticks := make(chan *models.PriceTick, 256)
	errs := make(chan error, 1)

	conn, done := s.session()
	if conn == nil {
		errs <- errNotConnected
		close(ticks)
		close(errs)
		return ticks, errs
	}

	readDone := make(chan struct{})

	// ping loop
	go func() {
		ticker := time.NewTicker(s.cfg.PingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-readDone:
				return
			case <-ticker.C:
				s.writeMu.Lock()
				_ = conn.WriteMessage(websocket.PingMessage, nil)
				s.writeMu.Unlock()
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		defer close(readDone)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- err
					return
				}
				for _, t := range s.parseFrame(b) {
					select {
					case ticks <- t:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// parseFrame turns one wire frame into zero or more validated ticks.
func (s *Stream) parseFrame(b []byte) []*models.PriceTick {
	var f pushFrame
	if err := json.Unmarshal(b, &f); err != nil {
		s.log.Debug("malformed frame dropped", applogger.Error(err))
		return nil
	}

	if len(f.Prices) > 0 {
		now := time.Now().UnixMilli()
		out := make([]*models.PriceTick, 0, len(f.Prices))
		for id, q := range f.Prices {
			t := &models.PriceTick{
				Underlying: models.Underlying(id),
				Price:      q.Price,
				Change24h:  q.Change24h,
				Timestamp:  now,
			}
			if err := t.Validate(); err != nil {
				s.log.Debug("malformed snapshot entry dropped",
					applogger.String("underlying", id), applogger.Error(err))
				continue
			}
			out = append(out, t)
		}
		return out
	}

	t := &models.PriceTick{
		Underlying: f.Underlying,
		Price:      f.Price,
		Change24h:  f.Change24h,
		Timestamp:  f.Timestamp,
		Volume:     f.Volume,
	}
	if err := t.Validate(); err != nil {
		s.log.Debug("malformed tick dropped", applogger.Error(err))
		return nil
	}
	return []*models.PriceTick{t}
}

// Reconnect closes and re-establishes the connection and subscription.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.cfg.ReconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close closes the WebSocket connection and retires its loops.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates whether the push channel is up.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
