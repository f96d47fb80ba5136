// Package gateway provides the HTTP client for the order-management
// subsystem. The engine only reads order state through it; placement and
// cancellation stay with order management.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// OrderClient implements domain.OrderGateway against the order-management
// HTTP API.
type OrderClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// OrderClientConfig configures the order-management client.
type OrderClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewOrderClient creates an OrderClient.
func NewOrderClient(cfg OrderClientConfig) *OrderClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OrderClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Status returns the order-management view of one order, in the exchange's
// native status vocabulary.
func (c *OrderClient) Status(ctx context.Context, q domain.OrderStatusQuery) (domain.OrderSnapshot, error) {
	params := url.Values{}
	params.Set("exchange", q.Exchange)
	if q.ExchangeOrderID != "" {
		params.Set("exchange_order_id", q.ExchangeOrderID)
	}
	reqURL := fmt.Sprintf("%s/v1/orders/%s?%s", c.baseURL, url.PathEscape(q.OrderID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("gateway: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("gateway: order status %s: %w", q.OrderID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.OrderSnapshot{}, fmt.Errorf("gateway: order %s: %w", q.OrderID, domain.ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.OrderSnapshot{}, fmt.Errorf("gateway: order status %s: status %d: %s", q.OrderID, resp.StatusCode, body)
	}

	var out struct {
		Status         string  `json:"status"`
		FilledQuantity float64 `json:"filled_quantity"`
		AvgFillPrice   float64 `json:"avg_fill_price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("gateway: decode order %s: %w", q.OrderID, err)
	}

	return domain.OrderSnapshot{
		ExchangeStatus: out.Status,
		FilledQuantity: out.FilledQuantity,
		AvgFillPrice:   out.AvgFillPrice,
	}, nil
}

// Compile-time interface check.
var _ domain.OrderGateway = (*OrderClient)(nil)
