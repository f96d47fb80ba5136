package domain

import (
	"context"
	"time"
)

// PriceQuoter fetches the current price for a symbol on an exchange. It
// returns ErrPriceUnavailable when the quote service has no price, which the
// engine treats as a per-position skip, never a batch failure.
type PriceQuoter interface {
	Quote(ctx context.Context, symbol, exchange string) (float64, error)
}

// OrderStatusQuery identifies one order at the order-management subsystem.
type OrderStatusQuery struct {
	OrderID         string
	Exchange        string
	ExchangeOrderID string
}

// OrderGateway exposes the order-management collaborator's view of an order.
// The engine never places orders through it.
type OrderGateway interface {
	Status(ctx context.Context, q OrderStatusQuery) (OrderSnapshot, error)
}

// PriceCache caches recent prices keyed by exchange and symbol.
type PriceCache interface {
	SetPrice(ctx context.Context, exchange, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, exchange, symbol string) (float64, time.Time, error)
}

// LockManager provides distributed locks, used to guarantee a single batch
// run at a time in daemon mode.
type LockManager interface {
	// Acquire returns an unlock func on success, or ErrLockHeld.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter throttles calls against shared per-exchange API budgets.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}

// SignalBus publishes engine events for alerting collaborators.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// BlobWriter writes archive objects to cold storage.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte, contentType string) error
}
