package stream_test

import (
	"context"
	"errors"
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

// receive runs the wait command and returns its message, failing the test
// if nothing arrives in time.
func receive(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()

	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()

	select {
	case msg := <-ch:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watcher message")
		return nil
	}
}

func TestWatcherEmitsInitialSnapshot(t *testing.T) {
	s := testutil.NewTestStore(t)
	_, err := s.CreateTicket(context.Background(), store.TicketDraft{
		Name: "Alex", Department: "Ops",
	})
	require.NoError(t, err)

	w := stream.New(s, nil, 10*time.Millisecond)
	defer w.Stop()

	msg := receive(t, w.Start())
	snap, ok := msg.(stream.SnapshotMsg)
	require.True(t, ok, "expected SnapshotMsg, got %T", msg)
	assert.Equal(t, uint64(1), snap.Seq)
	require.Len(t, snap.Tickets, 1)
	assert.Equal(t, "Alex", snap.Tickets[0].Name)
}

func TestWatcherEmitsOnChangeInOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	w := stream.New(s, nil, 10*time.Millisecond)
	defer w.Stop()

	msg := receive(t, w.Start())
	first, ok := msg.(stream.SnapshotMsg)
	require.True(t, ok)
	assert.Empty(t, first.Tickets)

	_, err := s.CreateTicket(ctx, store.TicketDraft{Name: "Alex", Department: "Ops"})
	require.NoError(t, err)
	w.Refresh()

	msg = receive(t, w.WaitForNext())
	second, ok := msg.(stream.SnapshotMsg)
	require.True(t, ok)
	assert.Equal(t, first.Seq+1, second.Seq)
	require.Len(t, second.Tickets, 1)

	// A second write while nobody is waiting must still be delivered
	// after the previous snapshot, never instead of it.
	_, err = s.CreateTicket(ctx, store.TicketDraft{Name: "Sam", Department: "IT"})
	require.NoError(t, err)
	w.Refresh()

	msg = receive(t, w.WaitForNext())
	third, ok := msg.(stream.SnapshotMsg)
	require.True(t, ok)
	assert.Equal(t, second.Seq+1, third.Seq)
	assert.Len(t, third.Tickets, 2)
}

type failingStore struct {
	store.Store
}

func (failingStore) Fingerprint(context.Context) (store.Fingerprint, error) {
	return store.Fingerprint{}, errors.New("connection lost")
}

func (failingStore) GetTickets(context.Context) ([]model.Ticket, error) {
	return nil, errors.New("connection lost")
}

func TestWatcherReportsTerminalError(t *testing.T) {
	w := stream.New(failingStore{}, nil, 10*time.Millisecond)
	defer w.Stop()

	msg := receive(t, w.Start())
	errMsg, ok := msg.(stream.ErrorMsg)
	require.True(t, ok, "expected ErrorMsg, got %T", msg)
	assert.Error(t, errMsg.Err)
}
