package registry

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/status"
	"github.com/nhle/ticket-triage/internal/theme"
)

// TicketItem wraps a model.Ticket so it can be used in a bubbles/list.
type TicketItem struct {
	Ticket model.Ticket
}

// FilterValue returns the string used for fuzzy filtering. The registry
// runs its own search instead, so this is only a fallback.
func (i TicketItem) FilterValue() string { return i.Ticket.Name }

// Title returns the requester name for the list.
func (i TicketItem) Title() string { return i.Ticket.Name }

// Description returns a short summary line for the list.
func (i TicketItem) Description() string {
	return fmt.Sprintf("%s | %s | %s",
		i.Ticket.Department, i.Ticket.Category, i.Ticket.Severity)
}

// TicketDelegate renders one ticket per line.
type TicketDelegate struct{}

// Height returns the number of lines each item takes.
func (d TicketDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d TicketDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d TicketDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single ticket line: status marker, severity badge,
// requester, department, category, and submission age.
func (d TicketDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TicketItem)
	if !ok {
		return
	}
	t := ti.Ticket

	var marker string
	if status.Normalize(t.Status) == status.Resolved {
		marker = "✓"
	} else {
		marker = "●"
	}

	sevBadge := theme.SeverityStyle(t.Severity).Render(severityLabel(t.Severity))
	statusBadge := theme.StatusStyle(t.Status).Render(status.NormalizeTriage(t.Status))

	timeStr := lipgloss.NewStyle().
		Foreground(theme.ColorGray).
		Render(relativeTime(t.SubmittedTime()))

	line := fmt.Sprintf(
		"%s %s %s %s · %s · %s  %s",
		marker, sevBadge, statusBadge, t.Name, t.Department, t.Category, timeStr,
	)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// severityLabel returns the short badge text for a severity.
func severityLabel(severity string) string {
	switch severity {
	case model.SeverityCritical:
		return "CRIT"
	case model.SeverityHigh:
		return "HIGH"
	case model.SeverityMedium:
		return "MED"
	case model.SeverityLow:
		return "LOW"
	default:
		return "LOW"
	}
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		mins := int(d.Minutes())
		if mins == 1 {
			return "1m ago"
		}
		return fmt.Sprintf("%dm ago", mins)
	case d < 24*time.Hour:
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1h ago"
		}
		return fmt.Sprintf("%dh ago", hrs)
	case d < 7*24*time.Hour:
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1d ago"
		}
		return fmt.Sprintf("%dd ago", days)
	default:
		weeks := int(d.Hours() / 24 / 7)
		if weeks == 1 {
			return "1w ago"
		}
		return fmt.Sprintf("%dw ago", weeks)
	}
}
