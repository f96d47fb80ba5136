package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rwallach/sentinel/internal/domain"
)

func openTrade(symbol string, market domain.MarketType, invested float64) domain.Trade {
	return domain.Trade{
		Symbol:         symbol,
		Market:         market,
		Status:         domain.TradeStatusActive,
		InvestedAmount: invested,
	}
}

func TestExposureEmpty(t *testing.T) {
	res := Exposure(nil, 5_000)
	assert.Zero(t, res.Total)
	assert.Zero(t, res.Pct)
	assert.Empty(t, res.BySymbol)
	assert.Zero(t, res.ActiveCount)
}

func TestExposureBreakdowns(t *testing.T) {
	trades := []domain.Trade{
		openTrade("BTCUSDT", domain.MarketFutures, 300),
		openTrade("BTCUSDT", domain.MarketSpot, 100),
		openTrade("ETHUSDT", domain.MarketFutures, 200),
		{Symbol: "SOLUSDT", Market: domain.MarketSpot, Status: domain.TradeStatusPending, InvestedAmount: 50},
		{Symbol: "XRPUSDT", Market: domain.MarketSpot, Status: domain.TradeStatusClosed, InvestedAmount: 900},
	}

	res := Exposure(trades, 1_000)

	assert.Equal(t, 650.0, res.Total)
	assert.InDelta(t, 0.65, res.Pct, 1e-9)
	assert.Equal(t, 400.0, res.BySymbol["BTCUSDT"])
	assert.Equal(t, 200.0, res.BySymbol["ETHUSDT"])
	assert.Equal(t, 50.0, res.BySymbol["SOLUSDT"])
	assert.NotContains(t, res.BySymbol, "XRPUSDT")
	assert.Equal(t, 500.0, res.ByMarket[domain.MarketFutures])
	assert.Equal(t, 150.0, res.ByMarket[domain.MarketSpot])
	assert.Equal(t, 4, res.ActiveCount)

	// No double counting: both breakdowns sum to the total.
	var bySymbol, byMarket float64
	for _, v := range res.BySymbol {
		bySymbol += v
	}
	for _, v := range res.ByMarket {
		byMarket += v
	}
	assert.InDelta(t, res.Total, bySymbol, 1e-9)
	assert.InDelta(t, res.Total, byMarket, 1e-9)
}

func TestExposureZeroEquity(t *testing.T) {
	trades := []domain.Trade{openTrade("BTCUSDT", domain.MarketSpot, 100)}
	res := Exposure(trades, 0)
	assert.Equal(t, 100.0, res.Total)
	assert.Zero(t, res.Pct)
}
