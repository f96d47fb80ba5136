package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

func breakEvenPos(side domain.PositionSide, trigger float64) domain.Position {
	sl := 92.0
	return domain.Position{
		Side:       side,
		EntryPrice: 100,
		Risk: domain.RiskState{
			StopLoss: &sl,
			BreakEven: &domain.BreakEvenConfig{
				Enabled:      true,
				TriggerPrice: trigger,
			},
		},
	}
}

func TestBreakEvenNotReached(t *testing.T) {
	pos := breakEvenPos(domain.SideLong, 110)

	rs, fired := ApplyBreakEven(pos, 105, time.Now().UTC())
	assert.False(t, fired)
	assert.Equal(t, 92.0, *rs.StopLoss)
	assert.False(t, rs.BreakEven.Activated)
}

func TestBreakEvenMovesStopToEntry(t *testing.T) {
	now := time.Now().UTC()
	pos := breakEvenPos(domain.SideLong, 110)

	rs, fired := ApplyBreakEven(pos, 111, now)
	require.True(t, fired)
	assert.Equal(t, 100.0, *rs.StopLoss)
	assert.True(t, rs.BreakEven.Activated)
	require.NotNil(t, rs.BreakEven.ActivatedAt)
	assert.Equal(t, now, *rs.BreakEven.ActivatedAt)

	// Input untouched.
	assert.Equal(t, 92.0, *pos.Risk.StopLoss)
	assert.False(t, pos.Risk.BreakEven.Activated)
}

func TestBreakEvenActivatesAtMostOnce(t *testing.T) {
	now := time.Now().UTC()
	pos := breakEvenPos(domain.SideLong, 110)

	rs, fired := ApplyBreakEven(pos, 111, now)
	require.True(t, fired)
	pos.Risk = rs

	// Second evaluation with the same activating price: identical state, no fire.
	again, fired := ApplyBreakEven(pos, 111, now.Add(time.Minute))
	assert.False(t, fired)
	assert.Equal(t, rs, again)
}

func TestBreakEvenShortDirection(t *testing.T) {
	pos := breakEvenPos(domain.SideShort, 90)
	pos.Risk.StopLoss = f(108)

	_, fired := ApplyBreakEven(pos, 95, time.Now().UTC())
	assert.False(t, fired)

	rs, fired := ApplyBreakEven(pos, 89, time.Now().UTC())
	require.True(t, fired)
	assert.Equal(t, 100.0, *rs.StopLoss)
}
