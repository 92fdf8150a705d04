// Package view derives ordered, filtered projections and aggregate counts
// from a ticket snapshot. Everything here is a pure function over its
// inputs; callers recompute on every snapshot or filter change.
package view

import (
	"sort"
	"strings"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/status"
)

// Status filter values. FilterAll disables status filtering.
const (
	FilterAll        = "all"
	FilterUnresolved = "unresolved"
	FilterResolved   = "resolved"
)

// Filters is the active filter set applied to a projection.
type Filters struct {
	// Status is one of FilterAll, FilterUnresolved, FilterResolved.
	Status string

	// Severity matches case-insensitively; empty or "all" disables it.
	Severity string

	// Department matches exactly; empty or "all" disables it.
	Department string

	// Query is matched case-insensitively as a substring against name,
	// department, category, details, severity, and normalized status.
	Query string
}

// Active reports whether any narrowing filter is set.
func (f Filters) Active() bool {
	return (f.Status != "" && f.Status != FilterAll) ||
		(f.Severity != "" && !strings.EqualFold(f.Severity, FilterAll)) ||
		(f.Department != "" && f.Department != FilterAll) ||
		strings.TrimSpace(f.Query) != ""
}

// SeverityWeight returns the ordering weight for a severity value.
// Unknown and missing severities collapse onto the lowest weight, the same
// as Low; the triage ordering does not distinguish them.
func SeverityWeight(severity string) int {
	switch strings.ToLower(strings.TrimSpace(severity)) {
	case "critical":
		return 3
	case "high":
		return 2
	case "medium":
		return 1
	default:
		return 0
	}
}

// SortRegistry orders tickets by submission time, newest first. Ties are
// broken by ID so the order is total and stable across snapshots. The
// input slice is not modified.
func SortRegistry(tickets []model.Ticket) []model.Ticket {
	out := make([]model.Ticket, len(tickets))
	copy(out, tickets)

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].SubmittedTime(), out[j].SubmittedTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// SortTriage orders tickets for the staff workflow: every unresolved
// ticket before every resolved one, then severity weight descending, then
// submission time descending, then ID. The input slice is not modified.
func SortTriage(tickets []model.Ticket) []model.Ticket {
	out := make([]model.Ticket, len(tickets))
	copy(out, tickets)

	sort.SliceStable(out, func(i, j int) bool {
		si, sj := status.Normalize(out[i].Status), status.Normalize(out[j].Status)
		if si != sj {
			return si == status.Unresolved
		}

		wi, wj := SeverityWeight(out[i].Severity), SeverityWeight(out[j].Severity)
		if wi != wj {
			return wi > wj
		}

		ti, tj := out[i].SubmittedTime(), out[j].SubmittedTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})

	return out
}

// Summarize computes the aggregate counts for a ticket set.
func Summarize(tickets []model.Ticket) model.TicketSummary {
	total := len(tickets)
	resolved := 0
	for _, t := range tickets {
		if status.Normalize(t.Status) == status.Resolved {
			resolved++
		}
	}

	return model.TicketSummary{
		Total:      total,
		Resolved:   resolved,
		Unresolved: total - resolved,
	}
}

// Apply filters a projection: status, then severity, then department, then
// the free-text query. The result is always non-nil; a filter combination
// with zero matches yields an empty slice.
func Apply(tickets []model.Ticket, f Filters) []model.Ticket {
	result := make([]model.Ticket, 0, len(tickets))

	query := strings.ToLower(strings.TrimSpace(f.Query))

	for _, t := range tickets {
		if !matchStatus(t, f.Status) {
			continue
		}
		if f.Severity != "" && !strings.EqualFold(f.Severity, FilterAll) &&
			!strings.EqualFold(t.Severity, f.Severity) {
			continue
		}
		if f.Department != "" && f.Department != FilterAll &&
			t.Department != f.Department {
			continue
		}
		if query != "" && !matchQuery(t, query) {
			continue
		}
		result = append(result, t)
	}

	return result
}

func matchStatus(t model.Ticket, filter string) bool {
	switch filter {
	case FilterResolved:
		return status.Normalize(t.Status) == status.Resolved
	case FilterUnresolved:
		return status.Normalize(t.Status) != status.Resolved
	default:
		return true
	}
}

func matchQuery(t model.Ticket, query string) bool {
	fields := []string{
		t.Name,
		t.Department,
		t.Category,
		t.Details,
		t.Severity,
		status.Normalize(t.Status),
	}
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), query) {
			return true
		}
	}
	return false
}

// Departments returns the sorted, deduplicated department list for the
// filter dropdown.
func Departments(tickets []model.Ticket) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tickets {
		if t.Department == "" || seen[t.Department] {
			continue
		}
		seen[t.Department] = true
		out = append(out, t.Department)
	}

	sort.Strings(out)
	return out
}
