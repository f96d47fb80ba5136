// Package feed supplies current prices to the engine. The QuoteService reads
// through the Redis price cache and falls back to the price API over HTTP;
// the Streamer keeps the cache warm from a websocket ticker feed.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// QuoteClient fetches spot prices from the price API over HTTP.
type QuoteClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client

	limiter    domain.RateLimiter
	rateLimit  int
	rateWindow time.Duration
}

// QuoteClientConfig configures the HTTP quote client. RateLimit of zero
// disables client-side throttling.
type QuoteClientConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RateLimit  int
	RateWindow time.Duration
}

// NewQuoteClient creates a QuoteClient. The limiter may be nil when no
// shared throttling is wanted.
func NewQuoteClient(cfg QuoteClientConfig, limiter domain.RateLimiter) *QuoteClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	window := cfg.RateWindow
	if window <= 0 {
		window = time.Second
	}
	return &QuoteClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		rateLimit:  cfg.RateLimit,
		rateWindow: window,
	}
}

// Quote fetches the current price for a symbol on an exchange. A missing or
// non-positive price maps to domain.ErrPriceUnavailable.
func (c *QuoteClient) Quote(ctx context.Context, symbol, exchange string) (float64, error) {
	if c.limiter != nil && c.rateLimit > 0 {
		if err := c.limiter.Wait(ctx, "quote:"+exchange, c.rateLimit, c.rateWindow); err != nil {
			return 0, fmt.Errorf("feed: rate limit: %w", err)
		}
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("exchange", exchange)
	reqURL := c.baseURL + "/v1/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("feed: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("feed: quote %s/%s: %w", exchange, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("feed: quote %s/%s: %w", exchange, symbol, domain.ErrPriceUnavailable)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("feed: quote %s/%s: status %d: %s", exchange, symbol, resp.StatusCode, body)
	}

	var out struct {
		Symbol string  `json:"symbol"`
		Price  float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("feed: decode quote %s/%s: %w", exchange, symbol, err)
	}
	if out.Price <= 0 {
		return 0, fmt.Errorf("feed: quote %s/%s: %w", exchange, symbol, domain.ErrPriceUnavailable)
	}
	return out.Price, nil
}

// Compile-time interface check.
var _ domain.PriceQuoter = (*QuoteClient)(nil)

// QuoteService is the engine's price source. It serves cached prices while
// they are fresh and falls back to the HTTP client, writing fetched prices
// back so sibling workers hit the cache.
type QuoteService struct {
	cache  domain.PriceCache
	client domain.PriceQuoter
	maxAge time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewQuoteService creates a QuoteService. Cached entries older than maxAge
// are treated as absent.
func NewQuoteService(cache domain.PriceCache, client domain.PriceQuoter, maxAge time.Duration, logger *slog.Logger) *QuoteService {
	if maxAge <= 0 {
		maxAge = 30 * time.Second
	}
	return &QuoteService{
		cache:  cache,
		client: client,
		maxAge: maxAge,
		logger: logger.With(slog.String("component", "quote_service")),
		now:    time.Now,
	}
}

// Quote returns the freshest known price for the symbol.
func (s *QuoteService) Quote(ctx context.Context, symbol, exchange string) (float64, error) {
	if s.cache != nil {
		price, ts, err := s.cache.GetPrice(ctx, exchange, symbol)
		switch {
		case err == nil && s.now().Sub(ts) <= s.maxAge:
			return price, nil
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			s.logger.WarnContext(ctx, "price cache read failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}

	price, err := s.client.Quote(ctx, symbol, exchange)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetPrice(ctx, exchange, symbol, price, s.now()); err != nil {
			s.logger.WarnContext(ctx, "price cache write failed",
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
		}
	}
	return price, nil
}

// Compile-time interface check.
var _ domain.PriceQuoter = (*QuoteService)(nil)
