package app

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/store"
	"github.com/nhle/ticket-triage/internal/stream"
	"github.com/nhle/ticket-triage/tests/testutil"
)

// newTestApp builds a sized root model over an in-memory store without
// starting the watcher goroutine.
func newTestApp(t *testing.T) (Model, *store.SQLiteStore) {
	t.Helper()

	s := testutil.NewTestStore(t)
	var cfg model.AppConfig
	cfg.Reminder.PeriodSec = 60

	m := New(s, cfg, nil)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(Model), s
}

func pressApp(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeString(m Model, s string) Model {
	for _, r := range s {
		m = pressApp(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func snapshot() stream.SnapshotMsg {
	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	return stream.SnapshotMsg{
		Seq: 1,
		Tickets: []model.Ticket{
			{ID: "a", Name: "Robert", Department: "Ops", Category: "Network",
				Severity: model.SeverityHigh, Status: "open", SubmittedAt: base},
			{ID: "b", Name: "Alex", Department: "Finance", Category: "Hardware",
				Severity: model.SeverityLow, Status: "open", SubmittedAt: base.Add(time.Minute)},
		},
	}
}

// Letters bound to global shortcuts must reach the search input while it
// has focus instead of firing their shortcut.
func TestSearchTypingKeepsGlobalShortcutsOut(t *testing.T) {
	m, _ := newTestApp(t)
	m = pressApp(m, snapshot())

	m = pressApp(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	require.True(t, m.dashboard.SearchActive())

	// "robert" contains 'r', which would otherwise trigger a refresh and
	// swallow the keystroke.
	m = typeString(m, "robert")
	m = pressApp(m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ViewDashboard, m.currentView)
	out := m.dashboard.View()
	assert.Contains(t, out, "Robert")
	assert.NotContains(t, out, "Alex")
}

func TestSearchTypingQuestionMarkStaysInSearch(t *testing.T) {
	m, _ := newTestApp(t)
	m = pressApp(m, snapshot())

	m = pressApp(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}})
	require.True(t, m.dashboard.SearchActive())

	m = pressApp(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, ViewDashboard, m.currentView, "help must not open over the search bar")
	assert.True(t, m.dashboard.SearchActive())

	// Outside search, the same key opens help.
	m = pressApp(m, tea.KeyMsg{Type: tea.KeyEsc})
	m = pressApp(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, ViewHelp, m.currentView)
}

// Reminders stay off until the stored preference says exactly "true".
func TestReminderPrefDefaultsOff(t *testing.T) {
	m, s := newTestApp(t)
	ctx := context.Background()

	msg := m.loadReminderPref()()
	assert.Equal(t, reminderPrefMsg{enabled: false}, msg, "missing pref leaves reminders off")

	require.NoError(t, s.SetPref(ctx, store.PrefReminderEnabled, "true"))
	msg = m.loadReminderPref()()
	assert.Equal(t, reminderPrefMsg{enabled: true}, msg)

	require.NoError(t, s.SetPref(ctx, store.PrefReminderEnabled, "false"))
	msg = m.loadReminderPref()()
	assert.Equal(t, reminderPrefMsg{enabled: false}, msg)

	require.NoError(t, s.SetPref(ctx, store.PrefReminderEnabled, "yes"))
	msg = m.loadReminderPref()()
	assert.Equal(t, reminderPrefMsg{enabled: false}, msg, "anything but \"true\" stays off")
}

func TestRefreshShortcutStillWorksOutsideSearch(t *testing.T) {
	m, _ := newTestApp(t)
	m = pressApp(m, snapshot())

	// Outside search, 'r' is consumed at the root as a refresh and never
	// reaches the list or the search input.
	m = pressApp(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Equal(t, ViewDashboard, m.currentView)
	assert.False(t, m.dashboard.SearchActive())

	out := m.dashboard.View()
	assert.Contains(t, out, "Robert")
	assert.Contains(t, out, "Alex")
}
