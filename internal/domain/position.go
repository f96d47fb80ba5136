package domain

import "time"

// MarketType distinguishes spot from leveraged futures positions.
type MarketType string

const (
	MarketSpot    MarketType = "spot"
	MarketFutures MarketType = "futures"
)

// PositionSide is the direction of a position.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// PositionStatus tracks the position lifecycle. The transition to "closing"
// is a one-way gate: once set by the engine it is never reverted, so a
// re-run cannot double-trigger a close order.
type PositionStatus string

const (
	PositionStatusOpen    PositionStatus = "open"
	PositionStatusClosing PositionStatus = "closing"
	PositionStatusClosed  PositionStatus = "closed"
	PositionStatusFailed  PositionStatus = "failed"
)

// PartialTakeProfit is one rung of a partial-exit ladder. Executed levels
// keep their timestamp and are never evaluated again.
type PartialTakeProfit struct {
	Price      float64    `json:"price"`
	Percent    float64    `json:"percent"`
	Executed   bool       `json:"executed"`
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}

// TrailingStopConfig holds trailing-stop state for a position. The stop only
// becomes active once price reaches ActivationPrice, and StopPrice only ever
// moves in the position's favor afterwards.
type TrailingStopConfig struct {
	Enabled         bool    `json:"enabled"`
	ActivationPrice float64 `json:"activation_price"`
	TrailPercent    float64 `json:"trail_percent"`
	StopPrice       float64 `json:"stop_price"` // 0 until the first favorable update
}

// BreakEvenConfig moves the stop-loss to the entry price once TriggerPrice
// is reached. Activated guards against re-triggering.
type BreakEvenConfig struct {
	Enabled      bool       `json:"enabled"`
	TriggerPrice float64    `json:"trigger_price"`
	Activated    bool       `json:"activated"`
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
}

// RiskState is the mutable risk sub-object owned exclusively by this engine.
// Optional rules are nil when not configured for the position.
type RiskState struct {
	StopLoss   *float64            `json:"stop_loss,omitempty"`
	TakeProfit *float64            `json:"take_profit,omitempty"`
	Trailing   *TrailingStopConfig `json:"trailing,omitempty"`
	BreakEven  *BreakEvenConfig    `json:"break_even,omitempty"`
	PartialTPs []PartialTakeProfit `json:"partial_tps,omitempty"`
}

// Clone returns a deep copy of the risk state so rule evaluators can produce
// an updated state without aliasing the original's pointers or ladder slice.
func (r RiskState) Clone() RiskState {
	out := r
	if r.StopLoss != nil {
		v := *r.StopLoss
		out.StopLoss = &v
	}
	if r.TakeProfit != nil {
		v := *r.TakeProfit
		out.TakeProfit = &v
	}
	if r.Trailing != nil {
		v := *r.Trailing
		out.Trailing = &v
	}
	if r.BreakEven != nil {
		v := *r.BreakEven
		out.BreakEven = &v
	}
	if r.PartialTPs != nil {
		out.PartialTPs = make([]PartialTakeProfit, len(r.PartialTPs))
		copy(out.PartialTPs, r.PartialTPs)
	}
	return out
}

// Position is one open trading exposure tracked for a user.
type Position struct {
	ID               string
	UserID           string
	Exchange         string
	Market           MarketType
	Symbol           string
	Side             PositionSide
	EntryPrice       float64
	Quantity         float64
	Leverage         float64 // 1 for spot
	LiquidationPrice *float64
	CurrentPrice     float64
	RealizedPnL      float64
	UnrealizedPnL    float64
	Risk             RiskState
	Status           PositionStatus
	CloseReason      *string
	OpenedAt         time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// IsLong reports whether the position profits from rising prices.
func (p Position) IsLong() bool {
	return p.Side == SideLong
}

// EffectiveLeverage returns the leverage multiplier for PnL, which is always
// 1 for spot positions regardless of the stored value.
func (p Position) EffectiveLeverage() float64 {
	if p.Market != MarketFutures || p.Leverage <= 0 {
		return 1
	}
	return p.Leverage
}
