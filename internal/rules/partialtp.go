package rules

import (
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// ExecutePartialTakeProfits marks every unexecuted ladder level whose price
// has been reached (directionally) as executed at now. It returns the updated
// risk state and the indexes of newly executed levels; the position itself is
// never closed by this rule. When no level fires the original state is
// returned unchanged.
func ExecutePartialTakeProfits(pos domain.Position, price float64, now time.Time) (domain.RiskState, []int) {
	var fired []int
	for i, level := range pos.Risk.PartialTPs {
		if level.Executed {
			continue
		}
		if reached(pos, price, level.Price) {
			fired = append(fired, i)
		}
	}
	if len(fired) == 0 {
		return pos.Risk, nil
	}

	rs := pos.Risk.Clone()
	ts := now
	for _, i := range fired {
		rs.PartialTPs[i].Executed = true
		rs.PartialTPs[i].ExecutedAt = &ts
	}
	return rs, fired
}

// reached reports whether price has moved through target in the position's
// favorable direction.
func reached(pos domain.Position, price, target float64) bool {
	if pos.IsLong() {
		return price >= target
	}
	return price <= target
}
