package rules

import (
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// ApplyBreakEven moves the stop-loss to the average entry price once price
// reaches the configured trigger. The activation flag makes this a one-shot:
// evaluating again with the same (or any) price after activation returns the
// state unchanged.
func ApplyBreakEven(pos domain.Position, price float64, now time.Time) (domain.RiskState, bool) {
	be := pos.Risk.BreakEven
	if be == nil || !be.Enabled || be.Activated {
		return pos.Risk, false
	}
	if !reached(pos, price, be.TriggerPrice) {
		return pos.Risk, false
	}

	rs := pos.Risk.Clone()
	entry := pos.EntryPrice
	rs.StopLoss = &entry
	rs.BreakEven.Activated = true
	ts := now
	rs.BreakEven.ActivatedAt = &ts
	return rs, true
}
