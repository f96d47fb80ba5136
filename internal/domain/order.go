package domain

import "time"

// OrderStatus is the internal order vocabulary. Exchange-native statuses are
// mapped onto these by the reconciler; the engine never writes any other value.
type OrderStatus string

const (
	OrderStatusNew             OrderStatus = "NEW"
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCanceled        OrderStatus = "CANCELED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

// Terminal reports whether the order can no longer change on the exchange.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCanceled, OrderStatusRejected, OrderStatusExpired:
		return true
	}
	return false
}

// Order mirrors an exchange order tied to a position. Placement and fills are
// owned by the external order-management subsystem; this engine only reflects
// exchange-observed truth back into the row.
type Order struct {
	ID              string
	PositionID      string
	UserID          string
	Exchange        string
	ExchangeOrderID string
	Symbol          string
	Side            string
	Quantity        float64
	FilledQuantity  float64
	AvgFillPrice    float64
	Status          OrderStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderSnapshot is the order-management collaborator's view of one order,
// still in the exchange's native status vocabulary.
type OrderSnapshot struct {
	ExchangeStatus string
	FilledQuantity float64
	AvgFillPrice   float64
}
