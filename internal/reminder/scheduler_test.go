package reminder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// armed returns a scheduler that is enabled, consented, and counting down
// with data loaded: the steady state of a live dashboard.
func armed(t *testing.T, unresolved int) *Scheduler {
	t.Helper()

	s := NewScheduler(60, nil)
	s.SetEnabled(true)
	require.Equal(t, StateAwaitingConsent, s.State())

	d := s.NoteGesture()
	require.Equal(t, StateAwaitingData, s.State())
	require.False(t, d.StartPlayback)

	// First snapshot: zero unresolved so the first check stays quiet.
	d = s.ObserveSnapshot(0, 0)
	require.False(t, d.StartPlayback)
	require.Equal(t, StateCountingDown, s.State())

	if unresolved > 0 {
		d = s.ObserveSnapshot(unresolved, unresolved)
		// The count increase fires a new-arrival playback; finish it so
		// tests start from a clean countdown.
		if d.StartPlayback {
			s.PlaybackFinished()
		}
	}
	require.Equal(t, StateCountingDown, s.State())
	return s
}

func TestDisabledSchedulerIsIdle(t *testing.T) {
	s := NewScheduler(60, nil)
	assert.Equal(t, StateIdle, s.State())

	// No trigger does anything while disabled.
	assert.False(t, s.NoteGesture().StartPlayback)
	assert.False(t, s.ObserveSnapshot(5, 5).StartPlayback)
	assert.Equal(t, StateIdle, s.State())
}

func TestConsentGateBlocksPlayback(t *testing.T) {
	s := NewScheduler(60, nil)
	s.SetEnabled(true)

	// Data arrives with unresolved tickets, but no gesture yet: nothing
	// may play.
	d := s.ObserveSnapshot(3, 3)
	assert.False(t, d.StartPlayback)
	assert.Equal(t, StateAwaitingConsent, s.State())

	// The first gesture runs the first check and fires.
	d = s.NoteGesture()
	assert.True(t, d.StartPlayback)
	assert.Equal(t, StatePlaying, s.State())

	s.PlaybackFinished()
	assert.Equal(t, StateCountingDown, s.State())
}

func TestFirstCheckWaitsForData(t *testing.T) {
	s := NewScheduler(60, nil)
	s.SetEnabled(true)

	d := s.NoteGesture()
	assert.False(t, d.StartPlayback)
	assert.Equal(t, StateAwaitingData, s.State())

	d = s.ObserveSnapshot(2, 2)
	assert.True(t, d.StartPlayback, "first check fires on data load")
}

// Enabling reminders after the one-time first check has fired re-enters
// the countdown without repeating the first check.
func TestReenableDoesNotRepeatFirstCheck(t *testing.T) {
	s := NewScheduler(60, nil)
	s.SetEnabled(true)
	s.NoteGesture()
	d := s.ObserveSnapshot(2, 2)
	require.True(t, d.StartPlayback)
	s.PlaybackFinished()

	s.SetEnabled(false)
	assert.Equal(t, StateIdle, s.State())

	d = s.SetEnabled(true)
	assert.False(t, d.StartPlayback)
	assert.Equal(t, StateCountingDown, s.State())
}

func TestTickCountsDownAndWraps(t *testing.T) {
	s := NewScheduler(3, nil)
	s.SetEnabled(true)
	s.NoteGesture()
	s.ObserveSnapshot(0, 0)
	gen := s.Gen()

	r := s.Tick(gen)
	assert.Equal(t, 2, r.Remaining)
	r = s.Tick(gen)
	assert.Equal(t, 1, r.Remaining)

	// Floor reached: wrap to the full period; no unresolved tickets, so
	// no playback.
	r = s.Tick(gen)
	assert.Equal(t, 3, r.Remaining)
	assert.False(t, r.StartPlayback)
}

func TestTickTriggerFiresWithUnresolved(t *testing.T) {
	s := NewScheduler(2, nil)
	s.SetEnabled(true)
	s.NoteGesture()
	s.ObserveSnapshot(0, 0)

	// Unresolved count appears without a count increase (an existing
	// ticket reopened): only the periodic trigger may fire.
	d := s.ObserveSnapshot(0, 1)
	require.False(t, d.StartPlayback)

	gen := s.Gen()
	r := s.Tick(gen)
	require.Equal(t, 1, r.Remaining)

	r = s.Tick(gen)
	assert.True(t, r.StartPlayback)
	assert.Equal(t, 2, r.Remaining, "countdown resets on the firing wrap")
	assert.Equal(t, StatePlaying, s.State())
}

func TestStaleTickIgnored(t *testing.T) {
	s := armed(t, 0)
	stale := s.Gen()

	s.Pause()
	before := s.Countdown()

	r := s.Tick(stale)
	assert.Equal(t, before, r.Remaining, "orphaned timer must not tick a paused scheduler")
	assert.False(t, r.StartPlayback)
}

// Two triggers racing while idle start exactly one playback sequence.
func TestAtMostOnePlayback(t *testing.T) {
	s := NewScheduler(1, nil)
	s.SetEnabled(true)
	s.NoteGesture()
	s.ObserveSnapshot(0, 0)
	d := s.ObserveSnapshot(1, 1)
	if d.StartPlayback {
		s.PlaybackFinished()
	}

	// Reopen: unresolved without a new arrival, then make the periodic
	// trigger and a new-ticket arrival land back to back.
	s.ObserveSnapshot(1, 1)

	gen := s.Gen()
	started := 0
	if s.Tick(gen).StartPlayback {
		started++
	}
	if s.ObserveSnapshot(2, 2).StartPlayback {
		started++
	}
	assert.Equal(t, 1, started)

	// After the sequence finishes the other trigger class can fire again.
	s.PlaybackFinished()
	assert.Equal(t, StateCountingDown, s.State())
}

func TestNewArrivalFiresImmediately(t *testing.T) {
	s := armed(t, 0)

	d := s.ObserveSnapshot(1, 1)
	assert.True(t, d.StartPlayback, "count increase means a new ticket arrived")
}

func TestShrinkingCountIsNotAnArrival(t *testing.T) {
	s := armed(t, 0)
	s.ObserveSnapshot(5, 5)
	s.PlaybackFinished()

	d := s.ObserveSnapshot(4, 4)
	assert.False(t, d.StartPlayback)

	// Returning to the previous count is also not an arrival.
	d = s.ObserveSnapshot(4, 4)
	assert.False(t, d.StartPlayback)
}

func TestPauseResumeKeepsRemaining(t *testing.T) {
	s := armed(t, 0)
	gen := s.Gen()

	for i := 0; i < 14; i++ {
		s.Tick(gen)
	}
	require.Equal(t, 46, s.Countdown())

	s.Pause()
	assert.Equal(t, StatePaused, s.State())
	assert.False(t, s.TickActive())

	s.Resume()
	assert.Equal(t, StateCountingDown, s.State())
	assert.Equal(t, 46, s.Countdown(), "resume starts from the captured remaining value")
}

func TestResumeWithoutPriorPauseValueUsesFullPeriod(t *testing.T) {
	s := armed(t, 0)

	// Pause during playback: no countdown value to capture.
	d := s.ObserveSnapshot(1, 1)
	require.True(t, d.StartPlayback)
	s.Pause()
	assert.Equal(t, StatePaused, s.State())
	assert.False(t, s.ContinuePlayback(), "pause aborts in-progress playback")

	s.PlaybackFinished()
	require.Equal(t, StatePaused, s.State(), "finishing an aborted sequence must not leave Paused")

	s.Resume()
	assert.Equal(t, 60, s.Countdown())
}

func TestDisableAbortsPlayback(t *testing.T) {
	s := armed(t, 0)
	d := s.ObserveSnapshot(1, 1)
	require.True(t, d.StartPlayback)
	require.True(t, s.ContinuePlayback())

	s.SetEnabled(false)
	assert.False(t, s.ContinuePlayback())
	assert.Equal(t, StateIdle, s.State())

	// The sequence goroutine reports in late; the guard stays released
	// and the state stays Idle.
	s.PlaybackFinished()
	assert.Equal(t, StateIdle, s.State())
}

func TestShutdownHaltsEverything(t *testing.T) {
	s := armed(t, 0)
	d := s.ObserveSnapshot(1, 1)
	require.True(t, d.StartPlayback)

	s.Shutdown()
	assert.False(t, s.ContinuePlayback())
	assert.Equal(t, StateIdle, s.State())
	assert.True(t, s.Enabled(), "logout must not flip the persisted preference")
}

// recordingPlayer counts plays and optionally blocks past the max wait.
type recordingPlayer struct {
	plays atomic.Int32
	hang  bool
	fail  bool
}

func (p *recordingPlayer) Play(ctx context.Context) error {
	p.plays.Add(1)
	if p.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	if p.fail {
		return errors.New("no audio device")
	}
	return nil
}

func TestSequenceRunsExactlyThreeTimes(t *testing.T) {
	p := &recordingPlayer{}
	seq := Sequence{Repeats: 3, Gap: time.Millisecond, MaxWait: time.Second}

	seq.Run(context.Background(), p, func() bool { return true }, nil)
	assert.Equal(t, int32(3), p.plays.Load())
}

func TestSequenceAbortsWhenGuardCleared(t *testing.T) {
	p := &recordingPlayer{}
	seq := Sequence{Repeats: 3, Gap: time.Millisecond, MaxWait: time.Second}

	calls := 0
	proceed := func() bool {
		calls++
		return calls == 1 // allow the first repetition only
	}

	seq.Run(context.Background(), p, proceed, nil)
	assert.Equal(t, int32(1), p.plays.Load())
}

func TestSequenceBoundsHungPlayer(t *testing.T) {
	p := &recordingPlayer{hang: true}
	seq := Sequence{Repeats: 2, Gap: time.Millisecond, MaxWait: 20 * time.Millisecond}

	start := time.Now()
	seq.Run(context.Background(), p, func() bool { return true }, nil)
	elapsed := time.Since(start)

	assert.Equal(t, int32(2), p.plays.Load(), "a hung repetition must not stop the next one")
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestSequenceSwallowsPlayerErrors(t *testing.T) {
	p := &recordingPlayer{fail: true}
	seq := Sequence{Repeats: 3, Gap: time.Millisecond, MaxWait: time.Second}

	seq.Run(context.Background(), p, func() bool { return true }, nil)
	assert.Equal(t, int32(3), p.plays.Load(), "errors end only the current repetition")
}
