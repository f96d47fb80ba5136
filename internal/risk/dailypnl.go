// Package risk contains the pure risk-aggregation primitives: daily P&L,
// drawdown, exposure and kill-switch evaluation, plus the snapshot aggregator
// composing them against per-user limits. Nothing in this package performs
// I/O or mutates its inputs.
package risk

import (
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// DailyPnLResult is the outcome of partitioning a user's trades against a
// single UTC calendar day.
type DailyPnLResult struct {
	Realized    float64 // realized P&L of trades closed on the day
	Unrealized  float64 // unrealized P&L of trades still open
	Total       float64
	Pct         float64 // Total relative to the starting equity
	ClosedCount int
	ActiveCount int
}

// DailyPnL partitions trades into those closed on the UTC date of now and
// those still open, and sums realized P&L of the former with unrealized P&L
// of the latter. The percentage is relative to startingEquity, falling back
// to currentEquity when no start-of-day reference exists. Empty input yields
// the zero result.
func DailyPnL(trades []domain.Trade, currentEquity, startingEquity float64, now time.Time) DailyPnLResult {
	var res DailyPnLResult

	for _, t := range trades {
		switch {
		case t.ClosedOn(now):
			res.Realized += t.RealizedPnL
			res.ClosedCount++
		case t.IsOpen():
			res.Unrealized += t.UnrealizedPnL
			res.ActiveCount++
		}
	}

	res.Total = res.Realized + res.Unrealized

	base := startingEquity
	if base <= 0 {
		base = currentEquity
	}
	if base > 0 {
		res.Pct = res.Total / base
	}
	return res
}
