package engine

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/futsal/go/internal/match/statestore"
	"github.com/mcdev12/futsal/go/internal/models"
)

func driver() Config {
	return Config{RunClock: true}
}

func TestEngineClock_CountsDownAndAccruesPlayerTime(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	e := startEngine(t, liveState(), driver(), Deps{Clock: fc})

	_, err := e.Dispatch(statestore.StartClock{})
	require.NoError(t, err)

	for i := 1; i <= 2; i++ {
		waitForTimer(t, fc)
		fc.Advance(time.Second)
		want := models.PeriodLength - i
		require.Eventually(t, func() bool { return e.GetState().Time == want }, time.Second, 5*time.Millisecond)
	}

	s := e.GetState()
	assert.Equal(t, 2, s.PlayerTimeTracker["a1"])
	assert.Equal(t, 2, s.PlayerTimeTracker["b5"])
	assert.Zero(t, s.PlayerTimeTracker["a6"])

	_, err = e.Dispatch(statestore.StopClock{})
	require.NoError(t, err)
	assert.False(t, e.matchClock.Running())

	fc.Advance(5 * time.Second)
	assert.Never(t, func() bool { return e.GetState().Time != models.PeriodLength-2 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestEngineClock_AutoStopsAtZero(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	flusher := &fakeFlusher{}
	e := startEngine(t, liveState(), driver(), Deps{Clock: fc, Flusher: flusher})

	_, err := e.Dispatch(statestore.SetTime{Seconds: 2})
	require.NoError(t, err)
	_, err = e.Dispatch(statestore.StartClock{})
	require.NoError(t, err)

	waitForTimer(t, fc)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return e.GetState().Time == 1 }, time.Second, 5*time.Millisecond)

	waitForTimer(t, fc)
	fc.Advance(time.Second)
	require.Eventually(t, func() bool { return e.GetState().Time == 0 }, time.Second, 5*time.Millisecond)

	s := e.GetState()
	assert.False(t, s.IsRunning)
	assert.False(t, e.matchClock.Running())
	require.Eventually(t, func() bool { return flusher.count() == 1 }, time.Second, 5*time.Millisecond,
		"end of period is checkpointed")
}

func TestEngineClock_TimeoutStopsClock(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	e := startEngine(t, liveState(), driver(), Deps{Clock: fc})

	_, err := e.Dispatch(statestore.StartClock{})
	require.NoError(t, err)
	require.True(t, e.matchClock.Running())

	_, err = e.Dispatch(statestore.AddEvent{Event: models.GameEvent{Type: models.EventTypeTimeout, TeamID: "team-b"}})
	require.NoError(t, err)

	s := e.GetState()
	assert.Equal(t, 1, s.TimeoutsB)
	assert.False(t, s.IsRunning)
	assert.False(t, e.matchClock.Running())
}

func TestEngineClock_ResumeCatchesUp(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	initial := liveState()
	initial.IsRunning = true
	initial.Time = 1000
	initial.UpdatedAt = t0.Add(-65 * time.Second)

	e := startEngine(t, initial, driver(), Deps{Clock: fc})

	s := e.GetState()
	assert.Equal(t, 935, s.Time, "catch up is not bounded by the per tick clamp")
	assert.Equal(t, 65, s.PlayerTimeTracker["a3"])
	assert.True(t, s.IsRunning)
	assert.True(t, e.matchClock.Running())
}

func TestEngineClock_ResumePastZero(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	initial := liveState()
	initial.IsRunning = true
	initial.Time = 30
	initial.UpdatedAt = t0.Add(-10 * time.Minute)

	e := startEngine(t, initial, driver(), Deps{Clock: fc})

	s := e.GetState()
	assert.Equal(t, 0, s.Time)
	assert.False(t, s.IsRunning)
	assert.Equal(t, 30, s.PlayerTimeTracker["b1"])
	assert.False(t, e.matchClock.Running())
}

func TestEngineClock_FollowerDoesNotDrive(t *testing.T) {
	fc := clockwork.NewFakeClockAt(t0)
	initial := liveState()
	initial.IsRunning = true
	initial.UpdatedAt = t0.Add(-time.Minute)

	e := startEngine(t, initial, Config{}, Deps{Clock: fc})

	assert.Equal(t, models.PeriodLength, e.GetState().Time)
	assert.False(t, e.matchClock.Running())
}
