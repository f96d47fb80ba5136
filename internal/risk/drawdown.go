package risk

// Drawdown returns the decline from peak to current equity and its fraction
// of peak. Both are clamped to zero: equity above peak is not a negative
// drawdown, and a non-positive peak yields a zero percentage.
func Drawdown(currentEquity, peakEquity float64) (amount, pct float64) {
	amount = peakEquity - currentEquity
	if amount < 0 {
		amount = 0
	}
	if peakEquity > 0 {
		pct = amount / peakEquity
	}
	return amount, pct
}

// UpdatePeak is the single writer of peak equity: it returns current only
// when it exceeds peak, otherwise it echoes peak unchanged. Peak equity is
// therefore monotonically non-decreasing outside an administrative reset.
func UpdatePeak(currentEquity, peakEquity float64) float64 {
	if currentEquity > peakEquity {
		return currentEquity
	}
	return peakEquity
}
