package rules

import (
	"math"

	"github.com/rwallach/sentinel/internal/domain"
)

// CloseReason identifies which rule triggered a position close.
type CloseReason string

const (
	CloseReasonKillSwitch      CloseReason = "kill_switch"
	CloseReasonLiquidationRisk CloseReason = "liquidation_risk"
	CloseReasonMaxDrawdown     CloseReason = "max_drawdown"
	CloseReasonDailyLossLimit  CloseReason = "daily_loss_limit"
	CloseReasonStopLoss        CloseReason = "stop_loss"
	CloseReasonTakeProfit      CloseReason = "take_profit"
	CloseReasonTrailingStop    CloseReason = "trailing_stop"
)

// liquidationProximityPct is the distance-to-liquidation threshold, as a
// fraction of current price, under which a futures position is force-closed.
const liquidationProximityPct = 0.02

// AccountContext carries the per-user aggregates the auto-close chain needs.
// It is recomputed fresh from the backing store every cycle.
type AccountContext struct {
	KillSwitchActive bool
	DrawdownPct      float64
	DailyLoss        float64 // positive when the day is in loss
	DailyLossPct     float64 // positive fraction when the day is in loss
	Limits           domain.RiskLimits
}

// CloseRule pairs a close reason with its predicate. Priority is the rule's
// position in the chain, not control flow.
type CloseRule struct {
	Reason  CloseReason
	Applies func(pos domain.Position, price float64, acct AccountContext) bool
}

// AutoCloseChain returns the account-level close rules in fixed priority
// order: kill switch, liquidation proximity, max drawdown, daily loss limit.
// The first matching rule wins and overrides stop-loss/take-profit for the
// cycle.
func AutoCloseChain() []CloseRule {
	return []CloseRule{
		{
			Reason: CloseReasonKillSwitch,
			Applies: func(_ domain.Position, _ float64, acct AccountContext) bool {
				return acct.KillSwitchActive
			},
		},
		{
			Reason: CloseReasonLiquidationRisk,
			Applies: func(pos domain.Position, price float64, _ AccountContext) bool {
				if pos.Market != domain.MarketFutures || pos.LiquidationPrice == nil || price <= 0 {
					return false
				}
				distance := math.Abs(price - *pos.LiquidationPrice)
				return distance <= price*liquidationProximityPct
			},
		},
		{
			Reason: CloseReasonMaxDrawdown,
			Applies: func(_ domain.Position, _ float64, acct AccountContext) bool {
				limit := acct.Limits.MaxDrawdownPct
				return limit > 0 && acct.DrawdownPct >= limit
			},
		},
		{
			Reason: CloseReasonDailyLossLimit,
			Applies: func(_ domain.Position, _ float64, acct AccountContext) bool {
				if acct.DailyLoss <= 0 {
					return false
				}
				lim := acct.Limits
				return (lim.MaxDailyLoss > 0 && acct.DailyLoss >= lim.MaxDailyLoss) ||
					(lim.MaxDailyLossPct > 0 && acct.DailyLossPct >= lim.MaxDailyLossPct)
			},
		},
	}
}

// EvaluateAutoClose walks the chain in order and returns the first matching
// reason.
func EvaluateAutoClose(pos domain.Position, price float64, acct AccountContext) (CloseReason, bool) {
	for _, rule := range AutoCloseChain() {
		if rule.Applies(pos, price, acct) {
			return rule.Reason, true
		}
	}
	return "", false
}
