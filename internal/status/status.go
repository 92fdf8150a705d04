// Package status maps raw and legacy ticket status strings onto the two
// canonical lifecycles: the 2-state registry view and the 3-state triage
// view. Both mappings are case-insensitive, total, and idempotent.
package status

import "strings"

// Registry view states.
const (
	Unresolved = "unresolved"
	Resolved   = "resolved"
)

// Triage view states.
const (
	Open       = "open"
	InProgress = "in_progress"
	Complete   = "complete"
)

// Normalize collapses a raw status onto the registry lifecycle.
// "resolved" and "closed" map to Resolved; everything else, including
// empty and unknown values, maps to Unresolved.
func Normalize(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "resolved", "closed", "complete":
		return Resolved
	default:
		return Unresolved
	}
}

// NormalizeTriage maps a raw status onto the triage lifecycle.
// "complete", "resolved", and "closed" are terminal; "in progress",
// "in_progress", and "processing" are mid-flight; everything else is the
// initial state.
func NormalizeTriage(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "complete", "resolved", "closed":
		return Complete
	case "in progress", "in_progress", "processing":
		return InProgress
	default:
		return Open
	}
}

// IsTerminal reports whether the raw status normalizes to the terminal
// state in either view.
func IsTerminal(raw string) bool {
	return NormalizeTriage(raw) == Complete
}
