package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/ticket-triage/internal/model"
)

// ErrNotFound is returned when a ticket lookup matches nothing.
var ErrNotFound = errors.New("ticket not found")

// PrefReminderEnabled is the fixed key for the persisted reminder toggle.
// It is the only scheduler state that survives a session restart.
const PrefReminderEnabled = "reminder_enabled"

// TicketDraft is the intake payload for a new ticket. The store assigns
// the ID and the submission timestamp; status always starts unresolved.
type TicketDraft struct {
	Name             string
	Department       string
	Category         string
	Severity         string
	Details          string
	SubmittedAtLocal string
}

// TicketUpdate is a field-merge partial update. Nil fields are left
// untouched; UpdatedAt is stamped by the store on every write.
type TicketUpdate struct {
	Status     *string
	AgentName  *string
	Situation  *string
	Solution   *string
	ResolvedAt *time.Time
}

// Fingerprint is a cheap change marker over the ticket set, used by the
// stream watcher to detect that a reload is needed.
type Fingerprint struct {
	Count       int
	LastUpdated string
}

// Store defines the persistence contract the core consumes: create,
// field-level update, snapshot reads, and the single persisted local
// preference.
type Store interface {
	CreateTicket(ctx context.Context, draft TicketDraft) (string, error)
	GetTickets(ctx context.Context) ([]model.Ticket, error)
	GetTicketByID(ctx context.Context, id string) (*model.Ticket, error)
	UpdateTicket(ctx context.Context, id string, update TicketUpdate) error

	Fingerprint(ctx context.Context) (Fingerprint, error)

	GetPref(ctx context.Context, key string) (string, error)
	SetPref(ctx context.Context, key, value string) error

	Close() error
}
