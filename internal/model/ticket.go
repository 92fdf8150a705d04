package model

import (
	"strings"
	"time"
)

// Registry statuses (2-state, requester-facing).
const (
	StatusUnresolved = "unresolved"
	StatusResolved   = "resolved"
)

// Triage statuses (3-state, staff-facing workflow).
const (
	TriageOpen       = "open"
	TriageInProgress = "in_progress"
	TriageComplete   = "complete"
)

// Severity levels, ordered from lowest to highest.
const (
	SeverityLow      = "Low"
	SeverityMedium   = "Medium"
	SeverityHigh     = "High"
	SeverityCritical = "Critical"
)

// SeverityOptions lists the selectable severities in ascending order.
var SeverityOptions = []string{
	SeverityLow,
	SeverityMedium,
	SeverityHigh,
	SeverityCritical,
}

// CategoryOptions lists the selectable ticket categories. "Others" requires
// a custom label of at most MaxCategoryLen characters.
var CategoryOptions = []string{
	"Hardware",
	"Software",
	"Network",
	"Printer",
	"Others",
}

// CategoryOther is the sentinel category that carries a custom label.
const CategoryOther = "Others"

// Field length caps enforced at intake.
const (
	MaxDetailsLen  = 150
	MaxCategoryLen = 25
)

// SubmittedAtLocalLayout is the layout the intake flow renders into
// SubmittedAtLocal. SubmittedTime parses it back as a fallback.
const SubmittedAtLocalLayout = "2006-01-02 15:04:05"

// Ticket is a single reported issue with requester metadata, classification,
// and resolution state.
type Ticket struct {
	// ID is the store-assigned opaque identifier. Immutable.
	ID string `json:"id" db:"id"`

	// Name is the requester's display name.
	Name string `json:"name" db:"name"`

	// Department is the requester's department.
	Department string `json:"department" db:"department"`

	// Category is the issue classification, either one of CategoryOptions
	// or the trimmed custom label entered for "Others".
	Category string `json:"category" db:"category"`

	// Severity is one of SeverityOptions. Unknown values sort with Low.
	Severity string `json:"severity" db:"severity"`

	// Details is the requester's free-text description, capped at
	// MaxDetailsLen characters.
	Details string `json:"details" db:"details"`

	// SubmittedAt is the store-stamped submission time.
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`

	// SubmittedAtLocal is the display fallback rendered on the submitting
	// client, kept verbatim.
	SubmittedAtLocal string `json:"submitted_at_local" db:"submitted_at_local"`

	// Status is the raw stored status. Always run it through the status
	// package before comparing; legacy values like "closed" or
	// "processing" appear in older rows.
	Status string `json:"status" db:"status"`

	// Resolution narrative. All three are set together when a ticket is
	// completed and never edited afterwards.
	AgentName string `json:"agent_name" db:"agent_name"`
	Situation string `json:"situation" db:"situation"`
	Solution  string `json:"solution" db:"solution"`

	// ResolvedAt is set when the ticket enters the terminal state.
	ResolvedAt *time.Time `json:"resolved_at,omitempty" db:"resolved_at"`

	// UpdatedAt is bumped on every write.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SubmittedTime returns the best-known submission instant: the store
// timestamp when present, otherwise the parsed local fallback, otherwise
// the zero time.
func (t Ticket) SubmittedTime() time.Time {
	if !t.SubmittedAt.IsZero() {
		return t.SubmittedAt
	}
	if t.SubmittedAtLocal != "" {
		if parsed, err := time.Parse(time.RFC3339, t.SubmittedAtLocal); err == nil {
			return parsed
		}
		if parsed, err := time.ParseInLocation(
			SubmittedAtLocalLayout, t.SubmittedAtLocal, time.Local); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// Resolution is the narrative captured when a ticket is completed.
// The three fields are required together.
type Resolution struct {
	AgentName string `json:"agent_name"`
	Situation string `json:"situation"`
	Solution  string `json:"solution"`
}

// Complete reports whether every narrative field is non-empty after
// trimming.
func (r Resolution) Complete() bool {
	return strings.TrimSpace(r.AgentName) != "" &&
		strings.TrimSpace(r.Situation) != "" &&
		strings.TrimSpace(r.Solution) != ""
}

// TicketSummary is the derived aggregate over the current ticket set.
// It is recomputed from every snapshot and never persisted.
type TicketSummary struct {
	Total      int `json:"total"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
}
