// Package stream surfaces the ticket store as an ordered sequence of full
// snapshots. The core never interprets individual change events; it only
// observes whole-set snapshots, delivered strictly in the order they were
// taken.
package stream

import (
	"context"
	"log/slog"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/store"
)

// SnapshotMsg is a tea.Msg carrying the full current ticket set, ordered
// by submission time descending as the store delivers it.
type SnapshotMsg struct {
	Tickets []model.Ticket

	// Seq increases by one per delivered snapshot. Consumers comparing
	// "current count vs previous count" rely on delivery order; Seq makes
	// gaps detectable in tests.
	Seq uint64
}

// ErrorMsg is a terminal tea.Msg: the subscription failed and the watcher
// has stopped. The view surfaces a persistent "unable to load" state and
// clears its loading indicator.
type ErrorMsg struct {
	Err error
}

// queryTimeout bounds a single store round-trip.
const queryTimeout = 10 * time.Second

// Watcher polls the store fingerprint and emits a fresh snapshot whenever
// the ticket set changed. A single goroutine produces into a FIFO channel,
// so snapshot delivery order matches snapshot order.
type Watcher struct {
	store    store.Store
	logger   *slog.Logger
	interval time.Duration

	resultCh  chan tea.Msg
	triggerCh chan struct{}
	stopCh    chan struct{}

	mu      gosync.Mutex
	running bool
}

// New creates a Watcher polling the given store at the given interval.
func New(s store.Store, logger *slog.Logger, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		store:     s,
		logger:    logger,
		interval:  interval,
		resultCh:  make(chan tea.Msg, 16),
		triggerCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Start launches the watch goroutine and returns a command that waits for
// the first message. Subsequent messages are received by re-subscribing
// with WaitForNext after each one, the usual Bubble Tea channel pattern.
func (w *Watcher) Start() tea.Cmd {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return w.WaitForNext()
	}
	w.running = true
	w.mu.Unlock()

	go w.watch()

	return w.WaitForNext()
}

// Stop halts the watch goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	close(w.stopCh)
	w.running = false
}

// Refresh forces an immediate poll, used right after a local write so the
// dashboard does not wait out the poll interval.
func (w *Watcher) Refresh() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
		// A poll is already pending.
	}
}

// WaitForNext returns a command that waits for the next snapshot or error.
func (w *Watcher) WaitForNext() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-w.resultCh:
			return msg
		case <-w.stopCh:
			return nil
		}
	}
}

// watch is the polling loop. The first iteration always emits a snapshot;
// afterwards one is emitted only when the fingerprint moves. Any store
// failure is terminal for the subscription.
func (w *Watcher) watch() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	var (
		last   store.Fingerprint
		haveFP bool
		seq    uint64
	)

	poll := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
		defer cancel()

		fp, err := w.store.Fingerprint(ctx)
		if err != nil {
			w.fail(err)
			return false
		}
		if haveFP && fp == last {
			return true
		}

		tickets, err := w.store.GetTickets(ctx)
		if err != nil {
			w.fail(err)
			return false
		}

		last = fp
		haveFP = true
		seq++

		// Blocking send keeps delivery lossless and ordered; the UI loop
		// drains promptly and stopCh unblocks teardown.
		select {
		case w.resultCh <- SnapshotMsg{Tickets: tickets, Seq: seq}:
		case <-w.stopCh:
			return false
		}
		return true
	}

	if !poll() {
		return
	}

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if !poll() {
				return
			}
		case <-w.triggerCh:
			if !poll() {
				return
			}
		}
	}
}

// fail emits the terminal error message and logs it.
func (w *Watcher) fail(err error) {
	w.logger.Error("ticket subscription failed", "error", err)
	select {
	case w.resultCh <- ErrorMsg{Err: err}:
	case <-w.stopCh:
	}
}
