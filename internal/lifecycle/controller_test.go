package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/store"
	"github.com/nhle/ticket-triage/tests/testutil"
)

func newTicket(t *testing.T, s store.Store) string {
	t.Helper()

	id, err := s.CreateTicket(context.Background(), store.TicketDraft{
		Name:       "Alex",
		Department: "Ops",
		Category:   "Network",
		Severity:   model.SeverityHigh,
		Details:    "VPN drops every few minutes",
	})
	require.NoError(t, err)
	return id
}

func TestAdvanceToInProgress(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	id := newTicket(t, s)

	require.NoError(t, c.Advance(context.Background(), id, "in_progress", nil))

	got, err := s.GetTicketByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
	assert.Nil(t, got.ResolvedAt)
}

func TestCompleteRequiresNarrative(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	id := newTicket(t, s)
	ctx := context.Background()

	assert.ErrorIs(t, c.Advance(ctx, id, "complete", nil), ErrResolutionRequired)

	// Whitespace-only fields do not count as a narrative.
	partial := &model.Resolution{AgentName: "Sam", Situation: "  ", Solution: "rebooted"}
	assert.ErrorIs(t, c.Advance(ctx, id, "complete", partial), ErrResolutionRequired)

	got, err := s.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "unresolved", got.Status, "a refused transition must not touch the ticket")
}

func TestCompleteCommitsNarrativeAtomically(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	id := newTicket(t, s)
	ctx := context.Background()

	resolvedAt := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	c.now = func() time.Time { return resolvedAt }

	res := &model.Resolution{
		AgentName: "Sam",
		Situation: "VPN concentrator was overloaded",
		Solution:  "Moved the user to the backup gateway",
	}
	require.NoError(t, c.Advance(ctx, id, "complete", res))

	got, err := s.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "complete", got.Status)
	assert.Equal(t, "Sam", got.AgentName)
	assert.Equal(t, res.Situation, got.Situation)
	assert.Equal(t, res.Solution, got.Solution)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, got.ResolvedAt.Equal(resolvedAt))
}

func TestResolvedTicketIsImmutable(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	id := newTicket(t, s)
	ctx := context.Background()

	res := &model.Resolution{AgentName: "Sam", Situation: "done", Solution: "done"}
	require.NoError(t, c.Advance(ctx, id, "complete", res))

	assert.ErrorIs(t, c.Advance(ctx, id, "open", nil), ErrTicketResolved)
	assert.ErrorIs(t, c.Advance(ctx, id, "in_progress", nil), ErrTicketResolved)
	assert.ErrorIs(t, c.Advance(ctx, id, "complete", res), ErrTicketResolved)
}

// Legacy stored statuses count as terminal even though they never went
// through the controller.
func TestLegacyClosedStatusIsTerminal(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	id := newTicket(t, s)
	ctx := context.Background()

	legacy := "Closed"
	require.NoError(t, s.UpdateTicket(ctx, id, store.TicketUpdate{Status: &legacy}))

	assert.ErrorIs(t, c.Advance(ctx, id, "open", nil), ErrTicketResolved)
}

func TestAdvanceUnknownTicket(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)

	err := c.Advance(context.Background(), "no-such-id", "open", nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdvanceRejectsUnknownTarget(t *testing.T) {
	s := testutil.NewTestStore(t)
	c := NewController(s, nil)
	id := newTicket(t, s)
	ctx := context.Background()

	assert.ErrorIs(t, c.Advance(ctx, id, "escalated", nil), ErrInvalidStatus)

	// Target matching is case-insensitive.
	require.NoError(t, c.Advance(ctx, id, " In_Progress ", nil))
	got, err := s.GetTicketByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
}
