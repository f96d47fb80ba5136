package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDrawdown(t *testing.T) {
	tests := []struct {
		name       string
		current    float64
		peak       float64
		wantAmount float64
		wantPct    float64
	}{
		{"below peak", 8_000, 10_000, 2_000, 0.2},
		{"at peak", 10_000, 10_000, 0, 0},
		{"above peak clamps to zero", 11_000, 10_000, 0, 0},
		{"zero peak yields zero pct", -500, 0, 500, 0},
		{"negative peak yields zero pct", -200, -100, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, pct := Drawdown(tt.current, tt.peak)
			assert.Equal(t, tt.wantAmount, amount)
			assert.InDelta(t, tt.wantPct, pct, 1e-9)
			assert.GreaterOrEqual(t, amount, 0.0)
		})
	}
}

func TestUpdatePeakMonotonic(t *testing.T) {
	peak := 10_000.0
	for _, equity := range []float64{9_500, 10_200, 10_100, 10_500, 8_000} {
		next := UpdatePeak(equity, peak)
		assert.GreaterOrEqual(t, next, peak, "peak must never decrease")
		peak = next
	}
	assert.Equal(t, 10_500.0, peak)
}

func TestUpdatePeakEchoesWhenNotExceeded(t *testing.T) {
	assert.Equal(t, 10_000.0, UpdatePeak(10_000, 10_000))
	assert.Equal(t, 10_000.0, UpdatePeak(9_999.99, 10_000))
	assert.Equal(t, 10_000.01, UpdatePeak(10_000.01, 10_000))
}
