package reminder

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// Player plays the reminder clip once, blocking until the end-of-clip
// signal or until ctx is done. Implementations own the codec and output
// device; the scheduler only cares about the protocol around them.
type Player interface {
	Play(ctx context.Context) error
}

// ExecPlayer shells out to a configured system player (afplay, paplay,
// mpg123, ...). The process exit is the end-of-clip signal.
type ExecPlayer struct {
	Command  string
	ClipPath string
}

// Play runs the player process once. Cancellation kills the process.
func (p ExecPlayer) Play(ctx context.Context) error {
	return exec.CommandContext(ctx, p.Command, p.ClipPath).Run()
}

// NopPlayer is used when no player command is configured; the scheduler
// still runs so the countdown and triggers stay observable.
type NopPlayer struct{}

// Play returns immediately.
func (NopPlayer) Play(context.Context) error { return nil }

// Sequence is the playback protocol: a fixed number of back-to-back
// repetitions with a short gap between them, each bounded by a maximum
// wait so a missing end-of-clip signal cannot stall the scheduler.
type Sequence struct {
	Repeats int
	Gap     time.Duration
	MaxWait time.Duration
}

// DefaultSequence matches the dashboard's alert: three repetitions, 100ms
// apart, 3s cap per repetition.
func DefaultSequence() Sequence {
	return Sequence{
		Repeats: 3,
		Gap:     100 * time.Millisecond,
		MaxWait: 3 * time.Second,
	}
}

// Run executes the playback sequence. proceed is re-checked before every
// repetition so an external disable or pause aborts after the current
// one. Playback errors are logged and swallowed: they terminate only the
// current repetition, and the guard release is the caller's job on every
// exit path.
func (s Sequence) Run(ctx context.Context, p Player, proceed func() bool, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	for i := 0; i < s.Repeats; i++ {
		if ctx.Err() != nil || !proceed() {
			return
		}

		if i > 0 {
			select {
			case <-time.After(s.Gap):
			case <-ctx.Done():
				return
			}
		}

		s.playOnce(ctx, p, logger)
	}
}

// playOnce plays a single repetition bounded by MaxWait. The player runs
// in its own goroutine so a hung implementation cannot block forward
// progress past the cap.
func (s Sequence) playOnce(ctx context.Context, p Player, logger *slog.Logger) {
	playCtx, cancel := context.WithTimeout(ctx, s.MaxWait)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.Play(playCtx)
	}()

	select {
	case err := <-done:
		if err != nil && playCtx.Err() == nil {
			logger.Error("reminder playback failed", "error", err)
		}
	case <-playCtx.Done():
		// Max wait elapsed or the sequence was cancelled; the goroutine
		// exits once the player notices its context.
	}
}
