// Package wizard holds the intake flow's state machine: step ordering,
// per-step validation, and the submit latch. It is UI-independent; the
// intake view renders whatever step the machine says is current.
package wizard

import (
	"strings"

	"github.com/nhle/ticket-triage/internal/model"
)

// Step identifies one card of the intake flow, in order.
type Step int

const (
	StepUserDetails Step = iota
	StepCategory
	StepSeverity
	StepDetails
	StepSummary

	stepCount
)

// String returns the card title shown for the step.
func (s Step) String() string {
	switch s {
	case StepUserDetails:
		return "Your Details"
	case StepCategory:
		return "Category"
	case StepSeverity:
		return "Severity"
	case StepDetails:
		return "Details"
	case StepSummary:
		return "Summary"
	default:
		return "unknown"
	}
}

// Draft is the in-progress intake payload. It lives only in the machine
// until a successful submit clears it.
type Draft struct {
	Name           string
	Department     string
	Category       string
	CustomCategory string
	Severity       string
	Details        string
}

// CategoryLabel resolves the effective category: the custom label when
// "Others" is chosen, the option itself otherwise.
func (d Draft) CategoryLabel() string {
	if d.Category == model.CategoryOther {
		return strings.TrimSpace(d.CustomCategory)
	}
	return d.Category
}

// Machine drives the intake wizard. Forward movement requires the current
// step to validate; the high-water mark remembers the furthest step
// reached so backward jumps stay free while unvisited steps stay gated.
type Machine struct {
	step       Step
	highWater  Step
	draft      Draft
	submitting bool
}

// New returns a machine positioned on the first step with an empty draft.
func New() *Machine {
	return &Machine{}
}

// Step returns the current step.
func (m *Machine) Step() Step { return m.step }

// HighWater returns the furthest step reached with valid inputs.
func (m *Machine) HighWater() Step { return m.highWater }

// Draft returns a copy of the current draft.
func (m *Machine) Draft() Draft { return m.draft }

// Submitting reports whether a submission is in flight.
func (m *Machine) Submitting() bool { return m.submitting }

// SetName records the requester name.
func (m *Machine) SetName(v string) { m.draft.Name = v }

// SetDepartment records the requester department.
func (m *Machine) SetDepartment(v string) { m.draft.Department = v }

// SetCategory records the chosen category option.
func (m *Machine) SetCategory(v string) { m.draft.Category = v }

// SetCustomCategory records the custom label for "Others", hard-capped at
// the category length limit.
func (m *Machine) SetCustomCategory(v string) {
	m.draft.CustomCategory = truncate(v, model.MaxCategoryLen)
}

// SetSeverity records the chosen severity.
func (m *Machine) SetSeverity(v string) { m.draft.Severity = v }

// SetDetails records the issue description, hard-capped at the details
// length limit.
func (m *Machine) SetDetails(v string) {
	m.draft.Details = truncate(v, model.MaxDetailsLen)
}

// StepValid reports whether the given step's inputs satisfy its rules.
func (m *Machine) StepValid(s Step) bool {
	switch s {
	case StepUserDetails:
		return strings.TrimSpace(m.draft.Name) != "" &&
			strings.TrimSpace(m.draft.Department) != ""
	case StepCategory:
		if m.draft.Category == "" {
			return false
		}
		if m.draft.Category == model.CategoryOther {
			label := strings.TrimSpace(m.draft.CustomCategory)
			return label != "" && len([]rune(label)) <= model.MaxCategoryLen
		}
		return true
	case StepSeverity:
		return m.draft.Severity != ""
	case StepDetails:
		d := strings.TrimSpace(m.draft.Details)
		return d != "" && len([]rune(d)) <= model.MaxDetailsLen
	case StepSummary:
		// The summary is reachable only through valid steps; it has no
		// inputs of its own.
		return true
	default:
		return false
	}
}

// CanAdvance reports whether Next would move forward.
func (m *Machine) CanAdvance() bool {
	return !m.submitting && m.step < StepSummary && m.StepValid(m.step)
}

// Next moves to the following step when the current one validates,
// raising the high-water mark as new ground is reached.
func (m *Machine) Next() bool {
	if !m.CanAdvance() {
		return false
	}
	m.step++
	if m.step > m.highWater {
		m.highWater = m.step
	}
	return true
}

// Prev moves one step back. Always allowed off the first step, even with
// invalid inputs on the current one.
func (m *Machine) Prev() bool {
	if m.submitting || m.step == 0 {
		return false
	}
	m.step--
	return true
}

// GoTo jumps directly to a step. The target must be within the high-water
// mark and every step below it must validate right now, so a field
// invalidated after backtracking blocks forward jumps until it is fixed.
func (m *Machine) GoTo(s Step) bool {
	if m.submitting || s < 0 || s >= stepCount || s > m.highWater {
		return false
	}
	for prev := StepUserDetails; prev < s; prev++ {
		if !m.StepValid(prev) {
			return false
		}
	}
	m.step = s
	return true
}

// BeginSubmit latches the submission. It succeeds only from the summary
// step, with every step valid, and with no submission already in flight.
func (m *Machine) BeginSubmit() bool {
	if m.submitting || m.step != StepSummary {
		return false
	}
	for s := StepUserDetails; s < StepSummary; s++ {
		if !m.StepValid(s) {
			return false
		}
	}
	m.submitting = true
	return true
}

// FinishSubmit releases the latch. On success the draft is cleared and
// the machine returns to the first step; on failure the draft and the
// position are preserved so the requester can retry.
func (m *Machine) FinishSubmit(success bool) {
	if !m.submitting {
		return
	}
	m.submitting = false

	if success {
		m.draft = Draft{}
		m.step = StepUserDetails
		m.highWater = StepUserDetails
	}
}

// truncate hard-caps a string at max characters. This is the one place
// intake silently drops input instead of rejecting it.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
