// Package reconcile maps exchange-observed order state into the engine's
// internal order records. It never initiates orders; it only reflects what
// the order-management collaborator reports.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// MapExchangeStatus translates an exchange-native order status into the
// internal vocabulary. The second return is false for statuses no known
// exchange vocabulary covers.
func MapExchangeStatus(s string) (domain.OrderStatus, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NEW", "ACCEPTED", "CREATED":
		return domain.OrderStatusNew, true
	case "PENDING", "PENDING_NEW", "OPEN", "LIVE", "SUBMITTED":
		return domain.OrderStatusPending, true
	case "PARTIALLY_FILLED", "PARTIAL_FILL", "PARTIAL":
		return domain.OrderStatusPartiallyFilled, true
	case "FILLED", "EXECUTED", "CLOSED":
		return domain.OrderStatusFilled, true
	case "CANCELED", "CANCELLED", "PENDING_CANCEL":
		return domain.OrderStatusCanceled, true
	case "REJECTED", "FAILED":
		return domain.OrderStatusRejected, true
	case "EXPIRED", "EXPIRED_IN_MATCH":
		return domain.OrderStatusExpired, true
	}
	return "", false
}

// Reconciler refreshes pending orders for a position from the
// order-management collaborator.
type Reconciler struct {
	orders  domain.OrderStore
	gateway domain.OrderGateway
	events  domain.EventStore
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Reconciler with all required dependencies.
func New(orders domain.OrderStore, gateway domain.OrderGateway, events domain.EventStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		orders:  orders,
		gateway: gateway,
		events:  events,
		logger:  logger,
		now:     time.Now,
	}
}

// ReconcilePosition queries the latest status of every non-terminal order
// tied to the position, maps it onto the internal vocabulary, persists any
// change and appends an order event. Individual order failures are logged and
// skipped; the first error is reported after all orders have been attempted.
func (r *Reconciler) ReconcilePosition(ctx context.Context, pos domain.Position) (int, error) {
	orders, err := r.orders.ListOpenByPosition(ctx, pos.ID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: list orders for position %s: %w", pos.ID, err)
	}

	var updated int
	var firstErr error
	for _, order := range orders {
		if order.Status.Terminal() {
			continue
		}

		changed, err := r.reconcileOrder(ctx, pos, order)
		if err != nil {
			r.logger.WarnContext(ctx, "reconcile: order refresh failed",
				slog.String("position_id", pos.ID),
				slog.String("order_id", order.ID),
				slog.String("error", err.Error()),
			)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if changed {
			updated++
		}
	}
	return updated, firstErr
}

func (r *Reconciler) reconcileOrder(ctx context.Context, pos domain.Position, order domain.Order) (bool, error) {
	snap, err := r.gateway.Status(ctx, domain.OrderStatusQuery{
		OrderID:         order.ID,
		Exchange:        order.Exchange,
		ExchangeOrderID: order.ExchangeOrderID,
	})
	if err != nil {
		return false, fmt.Errorf("reconcile: fetch status for order %s: %w", order.ID, err)
	}

	status, ok := MapExchangeStatus(snap.ExchangeStatus)
	if !ok {
		return false, fmt.Errorf("reconcile: order %s: unknown exchange status %q", order.ID, snap.ExchangeStatus)
	}

	if status == order.Status &&
		snap.FilledQuantity == order.FilledQuantity &&
		snap.AvgFillPrice == order.AvgFillPrice {
		return false, nil
	}

	prev := order.Status
	order.Status = status
	order.FilledQuantity = snap.FilledQuantity
	order.AvgFillPrice = snap.AvgFillPrice
	order.UpdatedAt = r.now().UTC()

	if err := r.orders.Update(ctx, order); err != nil {
		return false, fmt.Errorf("reconcile: persist order %s: %w", order.ID, err)
	}

	if err := r.events.Append(ctx, domain.Event{
		UserID:     pos.UserID,
		PositionID: pos.ID,
		Type:       domain.EventOrderUpdated,
		Detail: map[string]any{
			"order_id":        order.ID,
			"exchange":        order.Exchange,
			"previous_status": string(prev),
			"status":          string(status),
			"filled_quantity": order.FilledQuantity,
			"avg_fill_price":  order.AvgFillPrice,
		},
	}); err != nil {
		r.logger.WarnContext(ctx, "reconcile: event append failed",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	return true, nil
}
