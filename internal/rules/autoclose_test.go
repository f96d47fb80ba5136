package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

func futuresPos(liquidation float64) domain.Position {
	return domain.Position{
		Side:             domain.SideLong,
		Market:           domain.MarketFutures,
		EntryPrice:       100,
		Leverage:         10,
		LiquidationPrice: &liquidation,
	}
}

func limits() domain.RiskLimits {
	return domain.RiskLimits{
		MaxDailyLoss:    500,
		MaxDailyLossPct: 0.05,
		MaxDrawdownPct:  0.20,
	}
}

func TestAutoCloseChainOrder(t *testing.T) {
	chain := AutoCloseChain()
	require.Len(t, chain, 4)
	assert.Equal(t, CloseReasonKillSwitch, chain[0].Reason)
	assert.Equal(t, CloseReasonLiquidationRisk, chain[1].Reason)
	assert.Equal(t, CloseReasonMaxDrawdown, chain[2].Reason)
	assert.Equal(t, CloseReasonDailyLossLimit, chain[3].Reason)
}

func TestAutoCloseKillSwitchWinsOverDrawdown(t *testing.T) {
	// Both conditions hold simultaneously: the reported reason must always be
	// the kill switch.
	acct := AccountContext{
		KillSwitchActive: true,
		DrawdownPct:      0.35,
		Limits:           limits(),
	}

	reason, ok := EvaluateAutoClose(domain.Position{Side: domain.SideLong}, 100, acct)
	require.True(t, ok)
	assert.Equal(t, CloseReasonKillSwitch, reason)
}

func TestAutoCloseLiquidationProximity(t *testing.T) {
	acct := AccountContext{Limits: limits()}

	// Liquidation at 98.5, price 100: distance 1.5 <= 2.
	reason, ok := EvaluateAutoClose(futuresPos(98.5), 100, acct)
	require.True(t, ok)
	assert.Equal(t, CloseReasonLiquidationRisk, reason)

	// Distance 3 > 2: no close.
	_, ok = EvaluateAutoClose(futuresPos(97), 100, acct)
	assert.False(t, ok)

	// Spot positions are never liquidation-checked.
	spot := futuresPos(98.5)
	spot.Market = domain.MarketSpot
	_, ok = EvaluateAutoClose(spot, 100, acct)
	assert.False(t, ok)
}

func TestAutoCloseDrawdown(t *testing.T) {
	acct := AccountContext{DrawdownPct: 0.20, Limits: limits()}
	reason, ok := EvaluateAutoClose(domain.Position{}, 100, acct)
	require.True(t, ok)
	assert.Equal(t, CloseReasonMaxDrawdown, reason)

	acct.DrawdownPct = 0.19
	_, ok = EvaluateAutoClose(domain.Position{}, 100, acct)
	assert.False(t, ok)
}

func TestAutoCloseDailyLossEitherLimitTrips(t *testing.T) {
	// Currency limit.
	acct := AccountContext{DailyLoss: 600, DailyLossPct: 0.01, Limits: limits()}
	reason, ok := EvaluateAutoClose(domain.Position{}, 100, acct)
	require.True(t, ok)
	assert.Equal(t, CloseReasonDailyLossLimit, reason)

	// Percentage limit alone.
	acct = AccountContext{DailyLoss: 100, DailyLossPct: 0.06, Limits: limits()}
	reason, ok = EvaluateAutoClose(domain.Position{}, 100, acct)
	require.True(t, ok)
	assert.Equal(t, CloseReasonDailyLossLimit, reason)

	// A profitable day never trips either.
	acct = AccountContext{DailyLoss: -200, DailyLossPct: -0.06, Limits: limits()}
	_, ok = EvaluateAutoClose(domain.Position{}, 100, acct)
	assert.False(t, ok)
}

func TestAutoCloseNothingFires(t *testing.T) {
	_, ok := EvaluateAutoClose(domain.Position{}, 100, AccountContext{Limits: limits()})
	assert.False(t, ok)
}
