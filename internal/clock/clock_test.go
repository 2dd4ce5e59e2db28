package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTestClockAdvanceFiresDueTimers(t *testing.T) {
	c := NewTestClock(0)
	require.NoError(t, c.SetTimer("snap", time.Second, 0))

	due := c.Advance(2500 * time.Millisecond)
	require.Len(t, due, 2)
	assert.Equal(t, int64(time.Second), due[0].TsEvent)
	assert.Equal(t, int64(2*time.Second), due[1].TsEvent)
	assert.Equal(t, "snap", due[0].Name)

	// events are also delivered on the channel
	e := <-c.C()
	assert.Equal(t, due[0], e)
}

func TestTestClockStartDelay(t *testing.T) {
	c := NewTestClock(0)
	require.NoError(t, c.SetTimer("snap", time.Second, 250*time.Millisecond))

	due := c.Advance(time.Second)
	require.Len(t, due, 1)
	assert.Equal(t, (250 * time.Millisecond).Nanoseconds(), due[0].TsEvent)
}

func TestTestClockDuplicateTimer(t *testing.T) {
	c := NewTestClock(0)
	require.NoError(t, c.SetTimer("snap", time.Second, 0))
	assert.ErrorIs(t, c.SetTimer("snap", time.Second, 0), ErrTimerExists)
}

func TestTestClockCancelTimer(t *testing.T) {
	c := NewTestClock(0)
	require.NoError(t, c.SetTimer("snap", time.Second, 0))
	require.NoError(t, c.CancelTimer("snap"))
	assert.Empty(t, c.Advance(5*time.Second))
	assert.ErrorIs(t, c.CancelTimer("snap"), ErrTimerNotFound)
}

func TestTestClockDeterministicOrder(t *testing.T) {
	c := NewTestClock(0)
	require.NoError(t, c.SetTimer("b", time.Second, 0))
	require.NoError(t, c.SetTimer("a", time.Second, 0))

	due := c.Advance(time.Second)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Name)
	assert.Equal(t, "b", due[1].Name)
}

func TestLiveClockFires(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewLiveClock(ctx)
	defer c.Stop()
	require.NoError(t, c.SetTimer("snap", 10*time.Millisecond, 0))

	select {
	case e := <-c.C():
		assert.Equal(t, "snap", e.Name)
		assert.Positive(t, e.TsEvent)
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestLiveClockCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewLiveClock(ctx)
	defer c.Stop()
	require.NoError(t, c.SetTimer("snap", time.Hour, 0))
	assert.Equal(t, []string{"snap"}, c.TimerNames())

	require.NoError(t, c.CancelTimer("snap"))
	assert.Empty(t, c.TimerNames())
	assert.ErrorIs(t, c.CancelTimer("snap"), ErrTimerNotFound)
}
