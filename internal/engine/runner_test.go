package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwallach/sentinel/internal/domain"
)

func TestRunOnceAggregatesOutcomes(t *testing.T) {
	stop := 92.0

	healthy := openPosition("p1", "BTCUSDT")
	stopped := openPosition("p2", "ETHUSDT")
	stopped.Risk.StopLoss = &stop
	stopped.EntryPrice = 100
	noPrice := openPosition("p3", "DOGEUSDT")

	env := newProcessorEnv(healthy, stopped, noPrice)
	env.quoter.prices["BTCUSDT"] = 101
	env.quoter.prices["ETHUSDT"] = 90

	runner := NewRunner(env.positions, env.processor, RunnerConfig{Workers: 2}, testLogger())

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 3, summary.PositionsProcessed)
	assert.Equal(t, 2, summary.PositionsUpdated)
	assert.Equal(t, 1, summary.PositionsClosed)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, "stop_loss", env.positions.marked["p2"])
}

func TestRunOnceListFailureFailsRun(t *testing.T) {
	env := newProcessorEnv()
	env.positions.listErr = errors.New("connection refused")

	runner := NewRunner(env.positions, env.processor, RunnerConfig{}, testLogger())

	summary, err := runner.RunOnce(context.Background())
	require.Error(t, err)
	assert.False(t, summary.Success)
	require.NotNil(t, summary.Error)
	assert.Equal(t, 0, summary.PositionsProcessed)
}

func TestRunOnceRespectsBatchSize(t *testing.T) {
	var positions []domain.Position
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		positions = append(positions, openPosition(id, "BTCUSDT"))
	}
	env := newProcessorEnv(positions...)
	env.quoter.prices["BTCUSDT"] = 100

	runner := NewRunner(env.positions, env.processor, RunnerConfig{BatchSize: 2, Workers: 1}, testLogger())

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.PositionsProcessed)
}

func TestRunOnceEmptyBatch(t *testing.T) {
	env := newProcessorEnv()
	runner := NewRunner(env.positions, env.processor, RunnerConfig{}, testLogger())

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 0, summary.PositionsProcessed)
	assert.Equal(t, 0, summary.Errors)
}

type panickyQuoter struct{}

func (panickyQuoter) Quote(context.Context, string, string) (float64, error) {
	panic("quote backend gone")
}

func TestRunOnceConfinesPanicToOnePosition(t *testing.T) {
	env := newProcessorEnv(openPosition("p1", "BTCUSDT"))
	env.processor.quoter = panickyQuoter{}

	runner := NewRunner(env.positions, env.processor, RunnerConfig{Workers: 1}, testLogger())

	summary, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, 1, summary.PositionsProcessed)
	assert.Equal(t, 1, summary.Errors)
}
