package domain

import "time"

// TradeStatus tracks whether a trade still contributes to exposure.
type TradeStatus string

const (
	TradeStatusActive  TradeStatus = "active"
	TradeStatusPending TradeStatus = "pending"
	TradeStatusClosed  TradeStatus = "closed"
)

// Trade is one trade leg used for per-user risk aggregation: daily P&L,
// drawdown and exposure are all recomputed from the user's trades each cycle.
type Trade struct {
	ID             string
	UserID         string
	PositionID     string
	Exchange       string
	Symbol         string
	Market         MarketType
	Side           PositionSide
	InvestedAmount float64
	RealizedPnL    float64
	UnrealizedPnL  float64
	Status         TradeStatus
	OpenedAt       time.Time
	ClosedAt       *time.Time
}

// IsOpen reports whether the trade still ties up capital.
func (t Trade) IsOpen() bool {
	return t.Status == TradeStatusActive || t.Status == TradeStatusPending
}

// ClosedOn reports whether the trade closed on the given UTC calendar day.
func (t Trade) ClosedOn(day time.Time) bool {
	if t.Status != TradeStatusClosed || t.ClosedAt == nil {
		return false
	}
	y1, m1, d1 := t.ClosedAt.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
