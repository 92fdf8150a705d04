// Package lifecycle enforces the ticket status lifecycle: open →
// in_progress → complete, with complete terminal and reachable only
// together with a resolution narrative.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/status"
	"github.com/nhle/ticket-triage/internal/store"
)

// ErrTicketResolved is returned for any transition attempted on a ticket
// already in the terminal state. The UI surfaces it as a disabled
// affordance, never as a crash.
var ErrTicketResolved = errors.New("ticket is resolved and immutable")

// ErrResolutionRequired is returned when a transition into complete
// carries no narrative. The transition is two-phase: the caller solicits
// the narrative first, then commits with it.
var ErrResolutionRequired = errors.New("completing a ticket requires a resolution narrative")

// ErrInvalidStatus is returned for a target outside the triage lifecycle.
var ErrInvalidStatus = errors.New("invalid target status")

// Controller mutates ticket status through the store. It keeps no local
// copy of the ticket: after a successful write, the dashboard refreshes
// from the next stream snapshot.
type Controller struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewController creates a lifecycle controller over the given store.
func NewController(s store.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:  s,
		logger: logger,
		now:    time.Now,
	}
}

// Advance transitions a ticket to target, one of the triage statuses.
// Moving into complete requires res with every narrative field set; the
// commit stamps the resolution and resolved-at atomically with the
// status. Non-terminal targets ignore res.
func (c *Controller) Advance(ctx context.Context, id, target string, res *model.Resolution) error {
	switch target = strings.ToLower(strings.TrimSpace(target)); target {
	case status.Open, status.InProgress, status.Complete:
	default:
		return ErrInvalidStatus
	}

	ticket, err := c.store.GetTicketByID(ctx, id)
	if err != nil {
		return fmt.Errorf("loading ticket %s: %w", id, err)
	}

	if status.IsTerminal(ticket.Status) {
		return ErrTicketResolved
	}

	if target == status.Complete {
		return c.complete(ctx, ticket, res)
	}

	update := store.TicketUpdate{Status: &target}
	if err := c.store.UpdateTicket(ctx, id, update); err != nil {
		return fmt.Errorf("advancing ticket %s to %s: %w", id, target, err)
	}

	c.logger.Info("ticket status changed", "id", id, "status", target)
	return nil
}

// complete commits the terminal transition with its narrative.
func (c *Controller) complete(ctx context.Context, ticket *model.Ticket, res *model.Resolution) error {
	if res == nil || !res.Complete() {
		return ErrResolutionRequired
	}

	st := status.Complete
	resolvedAt := c.now().UTC()
	update := store.TicketUpdate{
		Status:     &st,
		AgentName:  &res.AgentName,
		Situation:  &res.Situation,
		Solution:   &res.Solution,
		ResolvedAt: &resolvedAt,
	}

	if err := c.store.UpdateTicket(ctx, ticket.ID, update); err != nil {
		return fmt.Errorf("completing ticket %s: %w", ticket.ID, err)
	}

	c.logger.Info("ticket resolved", "id", ticket.ID, "agent", res.AgentName)
	return nil
}
