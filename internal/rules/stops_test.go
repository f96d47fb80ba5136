package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rwallach/sentinel/internal/domain"
)

func posWithStops(side domain.PositionSide, stop, target *float64) domain.Position {
	return domain.Position{
		Side:       side,
		EntryPrice: 100,
		Quantity:   10,
		Risk: domain.RiskState{
			StopLoss:   stop,
			TakeProfit: target,
		},
	}
}

func f(v float64) *float64 { return &v }

func TestStopLossTriggered(t *testing.T) {
	tests := []struct {
		name  string
		side  domain.PositionSide
		stop  *float64
		price float64
		want  bool
	}{
		{"long above stop", domain.SideLong, f(92), 95, false},
		{"long at stop", domain.SideLong, f(92), 92, true},
		{"long below stop", domain.SideLong, f(92), 90, true},
		{"short below stop", domain.SideShort, f(108), 105, false},
		{"short at stop", domain.SideShort, f(108), 108, true},
		{"short above stop", domain.SideShort, f(108), 110, true},
		{"no stop configured", domain.SideLong, nil, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := posWithStops(tt.side, tt.stop, nil)
			assert.Equal(t, tt.want, StopLossTriggered(pos, tt.price))
		})
	}
}

func TestTakeProfitTriggered(t *testing.T) {
	tests := []struct {
		name   string
		side   domain.PositionSide
		target *float64
		price  float64
		want   bool
	}{
		{"long below target", domain.SideLong, f(120), 110, false},
		{"long at target", domain.SideLong, f(120), 120, true},
		{"long above target", domain.SideLong, f(120), 125, true},
		{"short above target", domain.SideShort, f(80), 90, false},
		{"short at target", domain.SideShort, f(80), 80, true},
		{"short below target", domain.SideShort, f(80), 75, true},
		{"no target configured", domain.SideShort, nil, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := posWithStops(tt.side, nil, tt.target)
			assert.Equal(t, tt.want, TakeProfitTriggered(pos, tt.price))
		})
	}
}
