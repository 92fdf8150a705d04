// Package reminder implements the audio reminder scheduler: a state
// machine that decides, on a fixed cadence and on data arrival, whether to
// play an alert for outstanding unresolved tickets. It owns the consent
// gate and the at-most-one-concurrent-playback guard.
package reminder

import (
	"log/slog"
	"sync"
)

// State is the scheduler's lifecycle state.
type State int

const (
	// StateIdle means reminders are disabled.
	StateIdle State = iota

	// StateAwaitingConsent means reminders are enabled but no qualifying
	// user gesture has been observed this session. Audio must not be
	// attempted before one.
	StateAwaitingConsent

	// StateAwaitingData means consent is granted but ticket data has not
	// loaded yet; the one-time first check runs when it does.
	StateAwaitingData

	// StateCountingDown means the visible countdown is running.
	StateCountingDown

	// StatePaused means a ticket detail view is open; the remaining
	// countdown is captured and no timers run.
	StatePaused

	// StatePlaying means a playback sequence is in progress.
	StatePlaying
)

// String returns a short name for the state, for logs and tests.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConsent:
		return "awaiting_consent"
	case StateAwaitingData:
		return "awaiting_data"
	case StateCountingDown:
		return "counting_down"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// Decision is what a scheduler event asks of the caller. When
// StartPlayback is true the playback guard is already held; the caller
// must run one playback sequence and report back with PlaybackFinished.
type Decision struct {
	StartPlayback bool
}

// TickResult carries the outcome of one countdown tick.
type TickResult struct {
	Remaining int
	Decision
}

// Scheduler is the reminder state machine. All mutation goes through its
// methods under one mutex: even though the UI loop is single-threaded, the
// playback goroutine reads the continuation flags concurrently, and two
// triggers interleaving in the message loop must not both observe "not
// playing".
type Scheduler struct {
	mu     sync.Mutex
	logger *slog.Logger

	period int

	state     State
	enabled   bool
	consented bool

	dataLoaded     bool
	firstCheckDone bool

	unresolved int
	lastTotal  int
	haveTotal  bool

	countdown int
	paused    int // captured remaining; 0 means none
	playing   bool
	gen       int
}

// NewScheduler creates a scheduler with the given countdown period in
// ticks. The scheduler starts Idle; call SetEnabled to arm it.
func NewScheduler(period int, logger *slog.Logger) *Scheduler {
	if period <= 0 {
		period = 60
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		logger:    logger,
		period:    period,
		state:     StateIdle,
		countdown: period,
	}
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enabled reports whether reminders are switched on.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Consented reports whether a qualifying gesture has been observed.
func (s *Scheduler) Consented() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consented
}

// Countdown returns the remaining ticks on the display countdown.
func (s *Scheduler) Countdown() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdown
}

// Gen returns the current tick generation. Tick timers carry the
// generation they were scheduled under; a mismatch means the timer was
// orphaned by a pause, reset, or teardown and must be ignored.
func (s *Scheduler) Gen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// TickActive reports whether the caller should keep a one-tick timer
// running.
func (s *Scheduler) TickActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateCountingDown
}

// SetEnabled switches reminders on or off. Disabling aborts any playback
// in flight and returns to Idle. Enabling arms the consent gate, or goes
// straight to counting down when consent was already granted this
// session; the one-time first check is not re-armed.
func (s *Scheduler) SetEnabled(on bool) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on == s.enabled {
		return Decision{}
	}

	s.enabled = on
	s.gen++

	if !on {
		s.playing = false
		s.paused = 0
		s.countdown = s.period
		s.state = StateIdle
		return Decision{}
	}

	switch {
	case !s.consented:
		s.state = StateAwaitingConsent
	case !s.dataLoaded:
		s.state = StateAwaitingData
	default:
		s.countdown = s.period
		s.state = StateCountingDown
	}

	return Decision{}
}

// NoteGesture records the first qualifying user gesture of the session.
// If the data is already loaded it runs the one-time first check; the
// returned decision may start playback.
func (s *Scheduler) NoteGesture() Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.consented {
		return Decision{}
	}
	s.consented = true

	if !s.enabled {
		return Decision{}
	}

	if !s.dataLoaded {
		s.state = StateAwaitingData
		return Decision{}
	}

	return s.runFirstCheck()
}

// ObserveSnapshot feeds a delivered snapshot's counts into the scheduler.
// A count strictly greater than the previous snapshot's means a new
// ticket arrived and fires an immediate playback attempt, subject to the
// consent gate and the playback guard. The first snapshot after consent
// runs the one-time first check instead.
func (s *Scheduler) ObserveSnapshot(total, unresolved int) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	newArrival := s.haveTotal && total > s.lastTotal
	s.lastTotal = total
	s.haveTotal = true
	s.dataLoaded = true
	s.unresolved = unresolved

	if s.state == StateAwaitingData {
		return s.runFirstCheck()
	}

	if newArrival && s.enabled && s.consented && s.state == StateCountingDown {
		return s.tryStartPlayback()
	}

	return Decision{}
}

// Tick advances the countdown by one unit. On reaching the floor the
// countdown wraps to the full period and the trigger is evaluated in the
// same step, so the display and the check can never drift apart. The
// countdown resets on every wrap whether or not playback starts.
func (s *Scheduler) Tick(gen int) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.state != StateCountingDown {
		return TickResult{Remaining: s.countdown}
	}

	if s.countdown > 1 {
		s.countdown--
		return TickResult{Remaining: s.countdown}
	}

	s.countdown = s.period
	return TickResult{Remaining: s.countdown, Decision: s.tryStartPlayback()}
}

// Pause captures the remaining countdown and tears the timers down,
// aborting any in-progress playback. Used when a ticket detail view
// opens.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateCountingDown:
		s.paused = s.countdown
	case StatePlaying:
		s.playing = false
		s.paused = s.period
	default:
		return
	}

	s.state = StatePaused
	s.gen++
}

// Resume restarts the countdown from exactly the captured remaining
// value, or from the full period when none was captured.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StatePaused {
		return
	}

	if s.paused > 0 {
		s.countdown = s.paused
	} else {
		s.countdown = s.period
	}
	s.paused = 0
	s.state = StateCountingDown
	s.gen++
}

// Shutdown halts playback and timers without touching the persisted
// enabled preference. Used on logout and session teardown.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = false
	s.paused = 0
	s.countdown = s.period
	s.state = StateIdle
	s.gen++
}

// PlaybackFinished releases the playback guard and returns to counting
// down. Safe to call after the sequence aborted or the scheduler moved on
// (pause, disable, logout) in the meantime.
func (s *Scheduler) PlaybackFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.playing = false

	if s.state != StatePlaying {
		return
	}

	if s.enabled && s.consented {
		s.countdown = s.period
		s.state = StateCountingDown
	} else {
		s.state = StateIdle
	}
	s.gen++
}

// ContinuePlayback is polled by the playback goroutine between
// repetitions; clearing the enabled flag or the guard aborts the sequence
// after the current repetition.
func (s *Scheduler) ContinuePlayback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled && s.playing
}

// runFirstCheck performs the one-time unresolved check after consent and
// data load, then enters the countdown. Caller holds the mutex.
func (s *Scheduler) runFirstCheck() Decision {
	s.countdown = s.period
	s.gen++

	if s.firstCheckDone {
		s.state = StateCountingDown
		return Decision{}
	}
	s.firstCheckDone = true

	d := s.tryStartPlayback()
	if !d.StartPlayback {
		s.state = StateCountingDown
	}
	return d
}

// tryStartPlayback is the critical section around the playback guard: the
// unresolved check and the read-and-set of the guard happen as one step,
// so two interleaved triggers can never both start a sequence. Caller
// holds the mutex.
func (s *Scheduler) tryStartPlayback() Decision {
	if s.unresolved <= 0 || s.playing || !s.enabled || !s.consented {
		return Decision{}
	}

	s.playing = true
	s.state = StatePlaying
	s.gen++
	s.logger.Debug("starting reminder playback", "unresolved", s.unresolved)
	return Decision{StartPlayback: true}
}
