// Package rules contains the pure, directional-aware rule evaluators for
// positions: stop-loss and take-profit triggers, the partial take-profit
// ladder, trailing stop and break-even adjustments, and the prioritized
// account-level auto-close chain. Evaluators never mutate their inputs;
// state-changing rules return an updated copy of the risk state.
package rules

import "github.com/rwallach/sentinel/internal/domain"

// StopLossTriggered reports whether price has crossed the stop price against
// the position: at or below the stop for longs, at or above it for shorts.
func StopLossTriggered(pos domain.Position, price float64) bool {
	if pos.Risk.StopLoss == nil {
		return false
	}
	stop := *pos.Risk.StopLoss
	if pos.IsLong() {
		return price <= stop
	}
	return price >= stop
}

// TakeProfitTriggered reports whether price has crossed the target in the
// position's favor: at or above the target for longs, at or below for shorts.
func TakeProfitTriggered(pos domain.Position, price float64) bool {
	if pos.Risk.TakeProfit == nil {
		return false
	}
	target := *pos.Risk.TakeProfit
	if pos.IsLong() {
		return price >= target
	}
	return price <= target
}
