package risk

import (
	"fmt"
	"time"

	"github.com/rwallach/sentinel/internal/domain"
)

// Warning thresholds: a drawdown warning fires at 80% of the configured
// limit, an exposure warning at 90%.
const (
	drawdownWarningRatio = 0.8
	exposureWarningRatio = 0.9
)

// SnapshotInput carries everything the aggregator needs for one user. All of
// it comes fresh from the backing store each cycle.
type SnapshotInput struct {
	Account    domain.RiskAccount
	Limits     domain.RiskLimits
	Trades     []domain.Trade
	KillSwitch *domain.KillSwitchState
	Now        time.Time
}

// BuildSnapshot composes the daily P&L, drawdown, exposure and kill-switch
// primitives into one risk snapshot and evaluates every configured limit.
// Zero-valued limits disable their check.
func BuildSnapshot(in SnapshotInput) domain.RiskSnapshot {
	daily := DailyPnL(in.Trades, in.Account.Equity, in.Account.StartingEquity, in.Now)
	ddAmount, ddPct := Drawdown(in.Account.Equity, in.Account.PeakEquity)
	exp := Exposure(in.Trades, in.Account.Equity)
	ksActive := KillSwitchActive(in.KillSwitch, in.Now)

	snap := domain.RiskSnapshot{
		UserID:           in.Account.UserID,
		Equity:           in.Account.Equity,
		PeakEquity:       in.Account.PeakEquity,
		StartingEquity:   in.Account.StartingEquity,
		DailyPnL:         daily.Total,
		DailyPnLPct:      daily.Pct,
		ClosedTradeCount: daily.ClosedCount,
		ActiveTradeCount: exp.ActiveCount,
		Drawdown:         ddAmount,
		DrawdownPct:      ddPct,
		MaxDrawdownPct:   ddPct,
		TotalExposure:    exp.Total,
		ExposurePct:      exp.Pct,
		ExposureBySymbol: exp.BySymbol,
		ExposureByMarket: exp.ByMarket,
		GeneratedAt:      in.Now,
	}

	var flags, warnings, alerts []string
	alert := func(flag, msg string) {
		flags = append(flags, flag)
		alerts = append(alerts, msg)
	}
	warn := func(flag, msg string) {
		flags = append(flags, flag)
		warnings = append(warnings, msg)
	}

	// Daily loss: currency or percentage, either trips it.
	dailyLoss := -daily.Total
	lim := in.Limits
	if dailyLoss > 0 {
		hit := (lim.MaxDailyLoss > 0 && dailyLoss >= lim.MaxDailyLoss) ||
			(lim.MaxDailyLossPct > 0 && -daily.Pct >= lim.MaxDailyLossPct)
		if hit {
			alert(domain.FlagDailyLossLimitHit,
				fmt.Sprintf("daily loss %.2f (%.2f%%) breaches the configured limit", dailyLoss, -daily.Pct*100))
		}
	}

	// Drawdown: hard alert at the limit, warning at 80% of it.
	if lim.MaxDrawdownPct > 0 {
		switch {
		case ddPct >= lim.MaxDrawdownPct:
			alert(domain.FlagMaxDrawdownExceeded,
				fmt.Sprintf("drawdown %.2f%% exceeds max %.2f%%", ddPct*100, lim.MaxDrawdownPct*100))
		case ddPct >= lim.MaxDrawdownPct*drawdownWarningRatio:
			warn(domain.FlagDrawdownWarning,
				fmt.Sprintf("drawdown %.2f%% approaching max %.2f%%", ddPct*100, lim.MaxDrawdownPct*100))
		}
	}

	// Total exposure: absolute and percentage limits share the flag.
	totalExceeded := (lim.MaxExposure > 0 && exp.Total >= lim.MaxExposure) ||
		(lim.MaxExposurePct > 0 && exp.Pct >= lim.MaxExposurePct)
	totalWarning := (lim.MaxExposure > 0 && exp.Total >= lim.MaxExposure*exposureWarningRatio) ||
		(lim.MaxExposurePct > 0 && exp.Pct >= lim.MaxExposurePct*exposureWarningRatio)
	switch {
	case totalExceeded:
		alert(domain.FlagTotalExposureExceeded,
			fmt.Sprintf("total exposure %.2f (%.2f%% of equity) exceeds the limit", exp.Total, exp.Pct*100))
	case totalWarning:
		warn(domain.FlagExposureWarning,
			fmt.Sprintf("total exposure %.2f (%.2f%% of equity) approaching the limit", exp.Total, exp.Pct*100))
	}

	// Per-symbol exposure, as a fraction of equity.
	if lim.MaxExposurePerSymbol > 0 && in.Account.Equity > 0 {
		for symbol, amount := range exp.BySymbol {
			if amount/in.Account.Equity >= lim.MaxExposurePerSymbol {
				alert(domain.FlagExposurePerSymbolExceeded+":"+symbol,
					fmt.Sprintf("exposure on %s of %.2f exceeds the per-symbol limit", symbol, amount))
			}
		}
	}

	// Concurrent trade cap.
	maxTradesHit := lim.MaxOpenTrades > 0 && exp.ActiveCount >= lim.MaxOpenTrades
	if maxTradesHit {
		warn(domain.FlagMaxTradesReached,
			fmt.Sprintf("active trades %d at the configured maximum %d", exp.ActiveCount, lim.MaxOpenTrades))
	}

	if ksActive {
		alert(domain.FlagKillSwitchActive, "kill switch active: "+in.KillSwitch.Reason)
	}

	snap.Flags = flags
	snap.Warnings = warnings
	snap.Alerts = alerts
	snap.Allowed = len(alerts) == 0 && !maxTradesHit
	snap.Level = riskLevel(alerts, warnings, ddPct, lim.MaxDrawdownPct)
	return snap
}

// riskLevel derives the overall severity. Any hard alert is CRITICAL;
// warnings combined with drawdown above 70% of its limit are HIGH; any
// warning or drawdown above 50% of its limit is MEDIUM; otherwise LOW.
func riskLevel(alerts, warnings []string, ddPct, maxDDPct float64) domain.RiskLevel {
	if len(alerts) > 0 {
		return domain.RiskLevelCritical
	}
	if len(warnings) > 0 && maxDDPct > 0 && ddPct > maxDDPct*0.7 {
		return domain.RiskLevelHigh
	}
	if len(warnings) > 0 || (maxDDPct > 0 && ddPct > maxDDPct*0.5) {
		return domain.RiskLevelMedium
	}
	return domain.RiskLevelLow
}
