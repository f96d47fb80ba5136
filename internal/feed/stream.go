package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rwallach/sentinel/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the pause before a reconnect attempt.
	reconnectDelay = 2 * time.Second
)

// tickerMessage is one price update on the ticker stream.
type tickerMessage struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	TS       int64   `json:"ts"` // Unix milliseconds
}

// Streamer subscribes to a websocket ticker feed and writes every price into
// the cache, so batch runs mostly avoid HTTP quote round-trips. Losing the
// connection only degrades freshness; the quote service falls back to HTTP.
type Streamer struct {
	wsURL   string
	symbols []string
	cache   domain.PriceCache
	logger  *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewStreamer creates a Streamer for the given symbols, each in
// "exchange:symbol" form understood by the feed endpoint.
func NewStreamer(wsURL string, symbols []string, cache domain.PriceCache, logger *slog.Logger) *Streamer {
	return &Streamer{
		wsURL:   wsURL,
		symbols: symbols,
		cache:   cache,
		logger:  logger.With(slog.String("component", "price_streamer")),
		done:    make(chan struct{}),
	}
}

// Run connects, subscribes and forwards ticks into the cache until ctx is
// cancelled or Close is called. It reconnects on disconnect.
func (s *Streamer) Run(ctx context.Context) error {
	if len(s.symbols) == 0 {
		s.logger.Info("no symbols to stream, exiting")
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		err := s.runConnection(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warn("ticker stream disconnected, reconnecting",
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Streamer) runConnection(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", s.wsURL, err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	sub := map[string]any{
		"op":      "subscribe",
		"channel": "ticker",
		"symbols": s.symbols,
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("feed: subscribe: %w", err)
	}
	s.logger.Info("ticker stream subscribed", slog.Int("symbols", len(s.symbols)))

	go s.pingLoop(ctx, conn)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}

		var msg tickerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn("malformed ticker message", slog.String("error", err.Error()))
			continue
		}
		if msg.Symbol == "" || msg.Price <= 0 {
			continue
		}

		ts := time.UnixMilli(msg.TS)
		if msg.TS == 0 {
			ts = time.Now()
		}
		if err := s.cache.SetPrice(ctx, msg.Exchange, msg.Symbol, msg.Price, ts); err != nil {
			s.logger.Warn("price cache write failed",
				slog.String("symbol", msg.Symbol),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *Streamer) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close stops the streamer.
func (s *Streamer) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
