package risk

import "github.com/rwallach/sentinel/internal/domain"

// ExposureResult breaks invested capital down by symbol and market type.
type ExposureResult struct {
	Total       float64
	Pct         float64 // Total relative to equity, 0 when equity <= 0
	BySymbol    map[string]float64
	ByMarket    map[domain.MarketType]float64
	ActiveCount int
}

// Exposure sums the invested capital of active and pending trades. Each trade
// is attributed to exactly one symbol and one market type, so the per-symbol
// and per-market breakdowns each sum to Total.
func Exposure(trades []domain.Trade, currentEquity float64) ExposureResult {
	res := ExposureResult{
		BySymbol: make(map[string]float64),
		ByMarket: make(map[domain.MarketType]float64),
	}

	for _, t := range trades {
		if !t.IsOpen() {
			continue
		}
		res.Total += t.InvestedAmount
		res.BySymbol[t.Symbol] += t.InvestedAmount
		res.ByMarket[t.Market] += t.InvestedAmount
		res.ActiveCount++
	}

	if currentEquity > 0 {
		res.Pct = res.Total / currentEquity
	}
	return res
}
