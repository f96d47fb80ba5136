package domain

import "time"

// RiskLevel is the overall severity derived from a risk snapshot.
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// Risk flags emitted by the snapshot aggregator. Per-symbol exposure flags
// append ":<symbol>" to FlagExposurePerSymbolExceeded.
const (
	FlagDailyLossLimitHit         = "DAILY_LOSS_LIMIT_HIT"
	FlagMaxDrawdownExceeded       = "MAX_DRAWDOWN_EXCEEDED"
	FlagDrawdownWarning           = "DRAWDOWN_WARNING"
	FlagTotalExposureExceeded     = "TOTAL_EXPOSURE_EXCEEDED"
	FlagExposureWarning           = "EXPOSURE_WARNING"
	FlagExposurePerSymbolExceeded = "EXPOSURE_PER_SYMBOL_EXCEEDED"
	FlagMaxTradesReached          = "MAX_TRADES_REACHED"
	FlagKillSwitchActive          = "KILL_SWITCH_ACTIVE"
)

// RiskLimits is the per-user risk configuration. Percentage limits are
// fractions (0.05 = 5%). A zero value disables the corresponding check.
type RiskLimits struct {
	UserID               string
	MaxDailyLoss         float64
	MaxDailyLossPct      float64
	MaxDrawdownPct       float64
	MaxExposure          float64
	MaxExposurePct       float64
	MaxExposurePerSymbol float64
	MaxOpenTrades        int
	UpdatedAt            time.Time
}

// RiskAccount is the persisted per-user equity reference used by drawdown and
// daily-loss aggregation. PeakEquity is only ever raised by the engine;
// StartingEquity is the start-of-day reference reset by an external job.
type RiskAccount struct {
	UserID         string
	Equity         float64
	PeakEquity     float64
	StartingEquity float64
	UpdatedAt      time.Time
}

// RiskSnapshot is a point-in-time risk aggregate for one user, recomputed
// from persisted trades and account data every cycle. It is never cached.
type RiskSnapshot struct {
	UserID           string
	Equity           float64
	PeakEquity       float64
	StartingEquity   float64
	DailyPnL         float64
	DailyPnLPct      float64
	ClosedTradeCount int
	ActiveTradeCount int
	Drawdown         float64
	DrawdownPct      float64
	MaxDrawdownPct   float64
	TotalExposure    float64
	ExposurePct      float64
	ExposureBySymbol map[string]float64
	ExposureByMarket map[MarketType]float64
	Flags            []string
	Warnings         []string
	Alerts           []string
	Level            RiskLevel
	Allowed          bool
	GeneratedAt      time.Time
}

// HasFlag reports whether the snapshot carries the given flag, matching
// per-symbol flags by their full "FLAG:<symbol>" form.
func (s RiskSnapshot) HasFlag(flag string) bool {
	for _, f := range s.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
