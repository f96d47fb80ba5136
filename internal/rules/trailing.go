package rules

import "github.com/rwallach/sentinel/internal/domain"

// UpdateTrailingStop recomputes the trailing stop for the current price and
// returns the updated risk state together with whether the stop moved.
//
// The rule only engages once price has reached the activation price (or the
// stop has engaged on a previous cycle). The candidate stop trails the
// current price by the configured percentage, and it only ever moves in the
// position's favor: up for longs, down for shorts.
func UpdateTrailingStop(pos domain.Position, price float64) (domain.RiskState, bool) {
	tr := pos.Risk.Trailing
	if tr == nil || !tr.Enabled || tr.TrailPercent <= 0 {
		return pos.Risk, false
	}

	engaged := tr.StopPrice != 0 || reached(pos, price, tr.ActivationPrice)
	if !engaged {
		return pos.Risk, false
	}

	var candidate float64
	if pos.IsLong() {
		candidate = price * (1 - tr.TrailPercent)
		if tr.StopPrice != 0 && candidate <= tr.StopPrice {
			return pos.Risk, false
		}
	} else {
		candidate = price * (1 + tr.TrailPercent)
		if tr.StopPrice != 0 && candidate >= tr.StopPrice {
			return pos.Risk, false
		}
	}

	rs := pos.Risk.Clone()
	rs.Trailing.StopPrice = candidate
	return rs, true
}

// TrailingStopHit reports whether price has crossed an engaged trailing stop
// against the position. A stop that never engaged cannot fire.
func TrailingStopHit(pos domain.Position, price float64) bool {
	tr := pos.Risk.Trailing
	if tr == nil || !tr.Enabled || tr.StopPrice == 0 {
		return false
	}
	if pos.IsLong() {
		return price <= tr.StopPrice
	}
	return price >= tr.StopPrice
}
