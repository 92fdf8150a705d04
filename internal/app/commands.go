package app

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/ticket-triage/internal/store"
	"github.com/nhle/ticket-triage/internal/ui/detail"
)

// tickMsg is one countdown tick, tagged with the scheduler generation it
// was scheduled under.
type tickMsg struct {
	gen int
}

// playbackDoneMsg reports the end of a playback sequence.
type playbackDoneMsg struct{}

// signOutDoneMsg ends the sign-out overlay.
type signOutDoneMsg struct{}

// reminderPrefMsg carries the persisted reminder toggle.
type reminderPrefMsg struct {
	enabled bool
}

// advanceResultMsg reports the outcome of a status transition.
type advanceResultMsg struct {
	ticketID string
	err      error
}

// createResultMsg reports the outcome of an intake submission.
type createResultMsg struct {
	err error
}

// loadReminderPref reads the persisted toggle. Reminders stay off unless
// the stored value says exactly "true"; missing or unreadable rows leave
// them disabled.
func (m Model) loadReminderPref() tea.Cmd {
	s := m.store
	logger := m.logger
	return func() tea.Msg {
		val, err := s.GetPref(context.Background(), store.PrefReminderEnabled)
		if err != nil {
			logger.Warn("reading reminder preference", "error", err)
			return reminderPrefMsg{enabled: false}
		}
		return reminderPrefMsg{enabled: val == "true"}
	}
}

// saveReminderPref persists the toggle. Failures are logged; the session
// keeps the in-memory value.
func (m Model) saveReminderPref(enabled bool) tea.Cmd {
	s := m.store
	logger := m.logger
	return func() tea.Msg {
		val := "true"
		if !enabled {
			val = "false"
		}
		if err := s.SetPref(context.Background(), store.PrefReminderEnabled, val); err != nil {
			logger.Warn("saving reminder preference", "error", err)
		}
		return nil
	}
}

// loadTicket loads one ticket for the detail view.
func (m Model) loadTicket(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ticket, err := s.GetTicketByID(context.Background(), id)
		return detail.TicketLoadedMsg{Ticket: ticket, Err: err}
	}
}

// advanceTicket runs a status transition through the lifecycle controller.
func (m Model) advanceTicket(msg detail.AdvanceMsg) tea.Cmd {
	c := m.controller
	return func() tea.Msg {
		err := c.Advance(context.Background(), msg.TicketID, msg.Target, msg.Resolution)
		return advanceResultMsg{ticketID: msg.TicketID, err: err}
	}
}

// createTicket writes a new ticket from the intake flow.
func (m Model) createTicket(draft store.TicketDraft) tea.Cmd {
	s := m.store
	logger := m.logger
	return func() tea.Msg {
		id, err := s.CreateTicket(context.Background(), draft)
		if err != nil {
			logger.Error("creating ticket", "error", err)
		} else {
			logger.Info("ticket created", "id", id, "severity", draft.Severity)
		}
		return createResultMsg{err: err}
	}
}

// maybePlayback starts one playback sequence when asked. The scheduler
// already holds the playback guard; the sequence re-checks it between
// repetitions and the done message releases it.
func (m Model) maybePlayback(start bool) tea.Cmd {
	if !start {
		return nil
	}

	seq := m.sequence
	player := m.player
	sch := m.scheduler
	logger := m.logger
	return func() tea.Msg {
		seq.Run(context.Background(), player, sch.ContinuePlayback, logger)
		return playbackDoneMsg{}
	}
}
