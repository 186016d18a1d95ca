package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bissquit/problem-dashboard/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func newCountingTask(clk clock.Clock) (*Task, *atomic.Int32) {
	var calls atomic.Int32
	task := NewTask("test", clk, func(context.Context) {
		calls.Add(1)
	})
	return task, &calls
}

func TestTask_RunsOnEachTick(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	task, calls := newCountingTask(clk)

	require.NoError(t, task.Start(time.Minute))
	defer task.Stop()

	clk.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	clk.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, waitFor, time.Millisecond)
}

func TestTask_StopPreventsFurtherRuns(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	task, calls := newCountingTask(clk)

	require.NoError(t, task.Start(time.Minute))
	clk.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)

	task.Stop()
	assert.False(t, task.Running())
	assert.Equal(t, 0, clk.ActiveTickers())

	clk.Advance(10 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	// Idempotent.
	task.Stop()
}

func TestTask_ResetChangesInterval(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	task, calls := newCountingTask(clk)

	require.NoError(t, task.Start(time.Minute))
	defer task.Stop()

	require.NoError(t, task.Reset(5*time.Minute))
	assert.Equal(t, 5*time.Minute, task.Interval())
	assert.Equal(t, 1, clk.ActiveTickers())

	clk.Advance(4 * time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	clk.Advance(time.Minute)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, waitFor, time.Millisecond)
}

func TestTask_ResetOnStoppedTaskDoesNotStart(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	task, _ := newCountingTask(clk)

	require.NoError(t, task.Reset(time.Minute))

	assert.False(t, task.Running())
	assert.Equal(t, time.Minute, task.Interval())
	assert.Equal(t, 0, clk.ActiveTickers())
}

func TestTask_InvalidInterval(t *testing.T) {
	task, _ := newCountingTask(clock.NewFake(time.Unix(0, 0)))

	assert.ErrorIs(t, task.Start(0), ErrInvalidInterval)
	assert.ErrorIs(t, task.Reset(-time.Second), ErrInvalidInterval)
	assert.False(t, task.Running())
}

func TestTask_StopCancelsRunningFunction(t *testing.T) {
	clk := clock.NewFake(time.Unix(0, 0))
	started := make(chan struct{})
	var cancelled atomic.Bool

	task := NewTask("blocking", clk, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
	})

	require.NoError(t, task.Start(time.Second))
	clk.Advance(time.Second)
	<-started

	task.Stop()
	assert.True(t, cancelled.Load())
}
