package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/store"
	"github.com/nhle/ticket-triage/tests/testutil"
)

func TestCreateAndGetTicket(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := s.CreateTicket(ctx, store.TicketDraft{
		Name:             "  Alex  ",
		Department:       "Ops",
		Category:         "Network",
		Severity:         model.SeverityHigh,
		Details:          "WiFi drops every 10 minutes",
		SubmittedAtLocal: "8/28/2026, 9:15:00 AM",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alex", got.Name, "name is trimmed")
	assert.Equal(t, "Ops", got.Department)
	assert.Equal(t, model.StatusUnresolved, got.Status)
	assert.Empty(t, got.AgentName)
	assert.Empty(t, got.Solution)
	assert.Nil(t, got.ResolvedAt)
	assert.False(t, got.SubmittedAt.IsZero())
	assert.Equal(t, "8/28/2026, 9:15:00 AM", got.SubmittedAtLocal)
}

func TestCreateTicketCapsDetails(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := s.CreateTicket(ctx, store.TicketDraft{
		Name:       "Sam",
		Department: "IT",
		Details:    strings.Repeat("x", model.MaxDetailsLen+40),
	})
	require.NoError(t, err)

	got, err := s.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, got.Details, model.MaxDetailsLen)
}

func TestGetTicketByIDNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetTicketByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetTicketsOrderedBySubmissionDesc(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		id, err := s.CreateTicket(ctx, store.TicketDraft{Name: name, Department: "Ops"})
		require.NoError(t, err)
		ids = append(ids, id)
		time.Sleep(5 * time.Millisecond)
	}

	tickets, err := s.GetTickets(ctx)
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, "third", tickets[0].Name)
	assert.Equal(t, "first", tickets[2].Name)
	_ = ids
}

func TestUpdateTicketMergesFields(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := s.CreateTicket(ctx, store.TicketDraft{Name: "Alex", Department: "Ops"})
	require.NoError(t, err)

	st := model.TriageComplete
	agent := "Sam"
	solution := "Replaced router"
	resolvedAt := time.Now().UTC()
	err = s.UpdateTicket(ctx, id, store.TicketUpdate{
		Status:     &st,
		AgentName:  &agent,
		Solution:   &solution,
		ResolvedAt: &resolvedAt,
	})
	require.NoError(t, err)

	got, err := s.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.TriageComplete, got.Status)
	assert.Equal(t, "Sam", got.AgentName)
	assert.Equal(t, "Replaced router", got.Solution)
	require.NotNil(t, got.ResolvedAt)
	// Untouched fields survive the merge.
	assert.Equal(t, "Alex", got.Name)
	assert.Empty(t, got.Situation)
}

func TestUpdateTicketNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	st := model.TriageInProgress
	err := s.UpdateTicket(context.Background(), "missing", store.TicketUpdate{Status: &st})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFingerprintChangesOnWrite(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	before, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, before.Count)

	id, err := s.CreateTicket(ctx, store.TicketDraft{Name: "Alex", Department: "Ops"})
	require.NoError(t, err)

	after, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, after.Count)
	assert.NotEqual(t, before, after)

	time.Sleep(5 * time.Millisecond)
	st := model.TriageInProgress
	require.NoError(t, s.UpdateTicket(ctx, id, store.TicketUpdate{Status: &st}))

	updated, err := s.Fingerprint(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, after, updated, "in-place update must change the fingerprint")
}

func TestPrefs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	val, err := s.GetPref(ctx, store.PrefReminderEnabled)
	require.NoError(t, err)
	assert.Empty(t, val, "missing pref reads as empty")

	require.NoError(t, s.SetPref(ctx, store.PrefReminderEnabled, "true"))
	val, err = s.GetPref(ctx, store.PrefReminderEnabled)
	require.NoError(t, err)
	assert.Equal(t, "true", val)

	require.NoError(t, s.SetPref(ctx, store.PrefReminderEnabled, "false"))
	val, err = s.GetPref(ctx, store.PrefReminderEnabled)
	require.NoError(t, err)
	assert.Equal(t, "false", val)
}
