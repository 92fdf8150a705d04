// Package app wires the console together: view routing, the stream
// watcher feeding the dashboard and the reminder scheduler, and the
// session lifecycle including logout.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ticket-triage/internal/keys"
	"github.com/nhle/ticket-triage/internal/lifecycle"
	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/reminder"
	"github.com/nhle/ticket-triage/internal/store"
	"github.com/nhle/ticket-triage/internal/stream"
	"github.com/nhle/ticket-triage/internal/ui"
	"github.com/nhle/ticket-triage/internal/ui/detail"
	helpview "github.com/nhle/ticket-triage/internal/ui/help"
	"github.com/nhle/ticket-triage/internal/ui/intake"
	"github.com/nhle/ticket-triage/internal/ui/registry"
	"github.com/nhle/ticket-triage/internal/view"
)

// signOutMinimum is how long the sign-out overlay stays up before the
// program exits.
const signOutMinimum = 4 * time.Second

// ViewState represents the current active view.
type ViewState int

const (
	ViewDashboard ViewState = iota
	ViewDetail
	ViewIntake
	ViewHelp
	ViewSignOut
)

// Model is the root Bubble Tea model.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap
	logger       *slog.Logger

	store      store.Store
	controller *lifecycle.Controller
	watcher    *stream.Watcher
	scheduler  *reminder.Scheduler
	player     reminder.Player
	sequence   reminder.Sequence

	dashboard registry.Model
	detail    detail.Model
	intake    intake.Model
	helpView  helpview.Model

	// tickGen is the generation of the countdown timer currently in
	// flight, if any. A new generation means the old timer is orphaned.
	tickGen     int
	tickRunning bool

	ready     bool
	streamOff bool
}

// New creates the root model over an opened store.
func New(s store.Store, cfg model.AppConfig, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	k := keys.DefaultKeyMap()

	var player reminder.Player = reminder.NopPlayer{}
	if cfg.Reminder.PlayerCommand != "" && cfg.Reminder.ClipPath != "" {
		player = reminder.ExecPlayer{
			Command:  cfg.Reminder.PlayerCommand,
			ClipPath: cfg.Reminder.ClipPath,
		}
	}

	seq := reminder.DefaultSequence()
	if cfg.Reminder.Repeats > 0 {
		seq.Repeats = cfg.Reminder.Repeats
	}
	if cfg.Reminder.GapMillis > 0 {
		seq.Gap = time.Duration(cfg.Reminder.GapMillis) * time.Millisecond
	}
	if cfg.Reminder.MaxWaitMillis > 0 {
		seq.MaxWait = time.Duration(cfg.Reminder.MaxWaitMillis) * time.Millisecond
	}

	return Model{
		currentView: ViewDashboard,
		keys:        k,
		logger:      logger,
		store:       s,
		controller:  lifecycle.NewController(s, logger),
		watcher: stream.New(s, logger,
			time.Duration(cfg.Store.PollIntervalSec)*time.Second),
		scheduler: reminder.NewScheduler(cfg.Reminder.PeriodSec, logger),
		player:    player,
		sequence:  seq,
		dashboard: registry.New(k, 80, 24),
		detail:    detail.New(k, 80, 24),
		intake:    intake.New(80, 24),
		helpView:  helpview.New(k, 80, 24),
	}
}

// Init starts the stream watcher and loads the persisted reminder
// preference after the first render.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.dashboard.Init(),
		m.watcher.Start(),
		m.loadReminderPref(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.dashboard.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.intake.SetSize(w, h)
		m.helpView.SetSize(w, h)
		return m.updateActiveView(msg)

	case stream.SnapshotMsg:
		return m.handleSnapshot(msg)

	case stream.ErrorMsg:
		m.streamOff = true
		m.dashboard.SetError(msg.Err)
		m.logger.Error("ticket stream stopped", "error", msg.Err)
		return m, nil

	case reminderPrefMsg:
		// The stored preference arms the scheduler, but the consent gate
		// still holds playback until the first gesture.
		d := m.scheduler.SetEnabled(msg.enabled)
		return m, m.schedulerCmds(d.StartPlayback)

	case tickMsg:
		return m.handleTick(msg)

	case playbackDoneMsg:
		m.scheduler.PlaybackFinished()
		return m, m.schedulerCmds(false)

	case signOutDoneMsg:
		m.watcher.Stop()
		return m, tea.Quit

	case registry.SelectedTicketMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		m.scheduler.Pause()
		return m, m.loadTicket(msg.TicketID)

	case detail.TicketLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewDashboard
		m.scheduler.Resume()
		return m, m.schedulerCmds(false)

	case detail.AdvanceMsg:
		return m, m.advanceTicket(msg)

	case advanceResultMsg:
		if msg.err != nil {
			m.detail.SetNotice(advanceNotice(msg.err))
			return m, nil
		}
		m.watcher.Refresh()
		return m, m.loadTicket(msg.ticketID)

	case intake.BackMsg:
		m.currentView = ViewDashboard
		return m, nil

	case intake.SubmitMsg:
		return m, m.createTicket(msg.Draft)

	case createResultMsg:
		if msg.err == nil {
			m.watcher.Refresh()
		}
		var cmd tea.Cmd
		m.intake, cmd = m.intake.Update(intake.SubmitResultMsg{Err: msg.err})
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

// handleSnapshot relays a delivered snapshot to the dashboard and the
// scheduler.
func (m Model) handleSnapshot(msg stream.SnapshotMsg) (tea.Model, tea.Cmd) {
	m.dashboard.SetSnapshot(msg.Tickets)
	summary := view.Summarize(msg.Tickets)

	d := m.scheduler.ObserveSnapshot(summary.Total, summary.Unresolved)

	return m, tea.Batch(m.watcher.WaitForNext(), m.schedulerCmds(d.StartPlayback))
}

// handleTick advances the countdown.
func (m Model) handleTick(msg tickMsg) (tea.Model, tea.Cmd) {
	r := m.scheduler.Tick(msg.gen)

	if msg.gen == m.scheduler.Gen() && m.scheduler.TickActive() {
		// Same generation keeps ticking.
		return m, m.tickCmd(msg.gen)
	}

	m.tickRunning = false
	return m, m.schedulerCmds(r.StartPlayback)
}

// handleKey routes key input: global keys first, then the active view.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key press is a qualifying gesture for the audio consent gate.
	gestureCmd := m.noteGesture()

	if m.currentView == ViewSignOut {
		return m, gestureCmd
	}

	switch msg.String() {
	case "ctrl+c":
		m.scheduler.Shutdown()
		m.watcher.Stop()
		return m, tea.Quit

	case "q":
		if m.currentView == ViewDashboard && !m.dashboardOwnsInput() {
			m.scheduler.Shutdown()
			m.watcher.Stop()
			return m, tea.Quit
		}

	case "ctrl+l":
		return m.beginSignOut()

	case "?":
		if m.currentView == ViewDashboard && !m.dashboardOwnsInput() {
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, gestureCmd
		}
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, gestureCmd
		}

	case "n":
		if m.currentView == ViewDashboard && !m.dashboardOwnsInput() {
			m.previousView = m.currentView
			m.currentView = ViewIntake
			m.intake = intake.New(m.layout.ContentWidth(), m.layout.ContentHeight())
			return m, tea.Batch(gestureCmd, m.intake.Init())
		}

	case "m":
		if m.currentView == ViewDashboard && !m.dashboardOwnsInput() {
			return m.toggleReminders(gestureCmd)
		}

	case "r":
		if m.currentView == ViewDashboard && !m.dashboardOwnsInput() {
			m.watcher.Refresh()
			return m, gestureCmd
		}

	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, gestureCmd
		}
	}

	next, cmd := m.updateActiveView(msg)
	return next, tea.Batch(gestureCmd, cmd)
}

// dashboardOwnsInput reports whether the dashboard's search bar has
// focus, in which case plain letters must pass through to it.
func (m Model) dashboardOwnsInput() bool {
	return m.dashboard.SearchActive()
}

// noteGesture feeds the consent gate and returns a playback command when
// the gesture releases the one-time first check.
func (m *Model) noteGesture() tea.Cmd {
	d := m.scheduler.NoteGesture()
	return m.schedulerCmds(d.StartPlayback)
}

// toggleReminders flips the reminder preference, persists it, and keeps
// the countdown timer in sync.
func (m Model) toggleReminders(gestureCmd tea.Cmd) (tea.Model, tea.Cmd) {
	enabled := !m.scheduler.Enabled()
	d := m.scheduler.SetEnabled(enabled)

	return m, tea.Batch(gestureCmd, m.schedulerCmds(d.StartPlayback), m.saveReminderPref(enabled))
}

// beginSignOut halts audio and timers and shows the sign-out overlay for
// its minimum duration before quitting.
func (m Model) beginSignOut() (tea.Model, tea.Cmd) {
	m.scheduler.Shutdown()
	m.currentView = ViewSignOut
	return m, tea.Tick(signOutMinimum, func(time.Time) tea.Msg { return signOutDoneMsg{} })
}

// schedulerCmds re-arms the countdown timer if needed and starts playback
// when the triggering event decided to.
func (m *Model) schedulerCmds(startPlayback bool) tea.Cmd {
	var cmds []tea.Cmd

	if c := m.maybePlayback(startPlayback); c != nil {
		cmds = append(cmds, c)
	}

	if m.scheduler.TickActive() {
		gen := m.scheduler.Gen()
		if !m.tickRunning || gen != m.tickGen {
			m.tickGen = gen
			m.tickRunning = true
			cmds = append(cmds, m.tickCmd(gen))
		}
	} else {
		m.tickRunning = false
	}

	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// tickCmd schedules one countdown tick for the given generation.
func (m Model) tickCmd(gen int) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{gen: gen}
	})
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewIntake:
		m.intake, cmd = m.intake.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.currentView == ViewSignOut {
		header := m.layout.RenderHeader("Ticket Triage", "")
		body := m.layout.RenderOverlay("Signing out...\n\nSee you next time.")
		return m.layout.RenderWithFrame(header, body, m.layout.RenderStatusBar(""))
	}

	header := m.layout.RenderHeader("Ticket Triage", m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewDashboard:
		return m.dashboard.View()
	case ViewDetail:
		return m.detail.View()
	case ViewIntake:
		return m.intake.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// headerStatus renders the right header segment: stream state plus the
// reminder countdown.
func (m Model) headerStatus() string {
	if m.streamOff {
		return "⚠ stream offline"
	}

	switch m.scheduler.State() {
	case reminder.StateCountingDown:
		return fmt.Sprintf("⏰ next check %ds", m.scheduler.Countdown())
	case reminder.StatePaused:
		return "⏰ paused"
	case reminder.StatePlaying:
		return "🔔 reminding"
	case reminder.StateAwaitingConsent:
		return "⏰ waiting for input"
	default:
		if m.scheduler.Enabled() {
			return "⏰ armed"
		}
		return "reminders off"
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewDetail:
		return "esc back | 1/2/3 status | j/k scroll"
	case ViewIntake:
		return "enter next | esc back"
	case ViewHelp:
		return "? close help | esc back"
	default:
		return "q quit | ? help | n new ticket | / search | tab status | s severity | d dept | m reminders | ctrl+l log out"
	}
}

// advanceNotice maps a refused transition onto the line shown in the
// detail view.
func advanceNotice(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, lifecycle.ErrTicketResolved):
		return "This ticket is already resolved."
	case errors.Is(err, lifecycle.ErrResolutionRequired):
		return "Resolving requires the full narrative."
	default:
		return "Status change failed: " + err.Error()
	}
}
