package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

func ladderPos(side domain.PositionSide, levels ...domain.PartialTakeProfit) domain.Position {
	return domain.Position{
		Side:       side,
		EntryPrice: 100,
		Risk:       domain.RiskState{PartialTPs: levels},
	}
}

func TestPartialTPExecutesReachedLevels(t *testing.T) {
	now := time.Now().UTC()
	pos := ladderPos(domain.SideLong,
		domain.PartialTakeProfit{Price: 105, Percent: 25},
		domain.PartialTakeProfit{Price: 110, Percent: 25},
		domain.PartialTakeProfit{Price: 120, Percent: 50},
	)

	rs, fired := ExecutePartialTakeProfits(pos, 112, now)

	assert.Equal(t, []int{0, 1}, fired)
	assert.True(t, rs.PartialTPs[0].Executed)
	assert.True(t, rs.PartialTPs[1].Executed)
	assert.False(t, rs.PartialTPs[2].Executed)
	require.NotNil(t, rs.PartialTPs[0].ExecutedAt)
	assert.Equal(t, now, *rs.PartialTPs[0].ExecutedAt)

	// Input position untouched.
	assert.False(t, pos.Risk.PartialTPs[0].Executed)
}

func TestPartialTPSkipsExecutedLevels(t *testing.T) {
	executedAt := time.Now().UTC().Add(-time.Hour)
	pos := ladderPos(domain.SideLong,
		domain.PartialTakeProfit{Price: 105, Percent: 25, Executed: true, ExecutedAt: &executedAt},
		domain.PartialTakeProfit{Price: 110, Percent: 25},
	)

	rs, fired := ExecutePartialTakeProfits(pos, 112, time.Now().UTC())

	assert.Equal(t, []int{1}, fired)
	// The previously executed level keeps its original timestamp.
	assert.Equal(t, executedAt, *rs.PartialTPs[0].ExecutedAt)
}

func TestPartialTPNoneReached(t *testing.T) {
	pos := ladderPos(domain.SideLong, domain.PartialTakeProfit{Price: 105, Percent: 25})

	rs, fired := ExecutePartialTakeProfits(pos, 104, time.Now().UTC())
	assert.Nil(t, fired)
	assert.Equal(t, pos.Risk, rs)
}

func TestPartialTPShortDirection(t *testing.T) {
	pos := ladderPos(domain.SideShort,
		domain.PartialTakeProfit{Price: 95, Percent: 50},
		domain.PartialTakeProfit{Price: 90, Percent: 50},
	)

	_, fired := ExecutePartialTakeProfits(pos, 96, time.Now().UTC())
	assert.Nil(t, fired)

	_, fired = ExecutePartialTakeProfits(pos, 94, time.Now().UTC())
	assert.Equal(t, []int{0}, fired)

	_, fired = ExecutePartialTakeProfits(pos, 89, time.Now().UTC())
	assert.Equal(t, []int{0, 1}, fired)
}
