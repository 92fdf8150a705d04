package wizard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/ticket-triage/internal/model"
)

// fill completes every step up to and including the summary.
func fill(t *testing.T) *Machine {
	t.Helper()

	m := New()
	m.SetName("Alex")
	m.SetDepartment("Ops")
	require.True(t, m.Next())

	m.SetCategory("Network")
	require.True(t, m.Next())

	m.SetSeverity(model.SeverityHigh)
	require.True(t, m.Next())

	m.SetDetails("VPN drops every few minutes")
	require.True(t, m.Next())

	require.Equal(t, StepSummary, m.Step())
	return m
}

func TestForwardRequiresValidStep(t *testing.T) {
	m := New()

	assert.False(t, m.Next(), "empty user details must not advance")

	m.SetName("Alex")
	assert.False(t, m.Next(), "department is required too")

	m.SetDepartment("  ")
	assert.False(t, m.Next(), "whitespace does not count")

	m.SetDepartment("Ops")
	assert.True(t, m.Next())
	assert.Equal(t, StepCategory, m.Step())
}

func TestOthersCategoryNeedsCustomLabel(t *testing.T) {
	m := New()
	m.SetName("Alex")
	m.SetDepartment("Ops")
	require.True(t, m.Next())

	m.SetCategory(model.CategoryOther)
	assert.False(t, m.Next(), "Others without a label must not advance")

	m.SetCustomCategory("Door badge reader")
	assert.True(t, m.Next())
}

func TestCustomCategoryTruncatedAtCap(t *testing.T) {
	m := New()
	m.SetCategory(model.CategoryOther)
	m.SetCustomCategory(strings.Repeat("x", 40))

	assert.Len(t, []rune(m.Draft().CustomCategory), model.MaxCategoryLen)
	assert.True(t, m.StepValid(StepCategory), "a truncated label still validates")
}

func TestDetailsTruncatedAtCap(t *testing.T) {
	m := New()
	m.SetDetails(strings.Repeat("a", 200))
	assert.Len(t, []rune(m.Draft().Details), model.MaxDetailsLen)
}

func TestHighWaterGatesForwardJumps(t *testing.T) {
	m := fill(t)

	// Jump back to the start, then directly forward to any visited step.
	require.True(t, m.GoTo(StepUserDetails))
	assert.True(t, m.GoTo(StepDetails))
	assert.True(t, m.GoTo(StepSummary))

	fresh := New()
	fresh.SetName("Alex")
	fresh.SetDepartment("Ops")
	assert.False(t, fresh.GoTo(StepSeverity), "unvisited steps stay gated")
	assert.True(t, fresh.GoTo(StepUserDetails))
}

func TestForwardJumpRejectedOverInvalidatedStep(t *testing.T) {
	m := fill(t)

	// Backtrack and break an earlier step. The summary stays within the
	// high-water mark but is no longer reachable until the step is fixed.
	require.True(t, m.GoTo(StepUserDetails))
	m.SetName("")
	assert.False(t, m.GoTo(StepSummary))
	assert.False(t, m.GoTo(StepCategory))
	assert.Equal(t, StepUserDetails, m.Step())

	m.SetName("Alex")
	assert.True(t, m.GoTo(StepSummary))
}

func TestBackwardNavigationIgnoresValidity(t *testing.T) {
	m := fill(t)
	require.True(t, m.GoTo(StepCategory))

	// Break the category step, then move back anyway.
	m.SetCategory("")
	assert.False(t, m.Next())
	assert.True(t, m.Prev())
	assert.Equal(t, StepUserDetails, m.Step())
}

func TestBeginSubmitOnlyFromSummary(t *testing.T) {
	m := New()
	m.SetName("Alex")
	m.SetDepartment("Ops")
	assert.False(t, m.BeginSubmit())

	m = fill(t)
	assert.True(t, m.BeginSubmit())
	assert.True(t, m.Submitting())

	// The latch blocks a second submit and all navigation.
	assert.False(t, m.BeginSubmit())
	assert.False(t, m.Prev())
	assert.False(t, m.GoTo(StepUserDetails))
}

func TestSuccessClearsDraft(t *testing.T) {
	m := fill(t)
	require.True(t, m.BeginSubmit())

	m.FinishSubmit(true)
	assert.False(t, m.Submitting())
	assert.Equal(t, StepUserDetails, m.Step())
	assert.Equal(t, StepUserDetails, m.HighWater())
	assert.Equal(t, Draft{}, m.Draft())
}

func TestFailurePreservesDraft(t *testing.T) {
	m := fill(t)
	before := m.Draft()
	require.True(t, m.BeginSubmit())

	m.FinishSubmit(false)
	assert.False(t, m.Submitting())
	assert.Equal(t, StepSummary, m.Step(), "the requester retries from the summary")
	assert.Equal(t, before, m.Draft())

	// Retry works.
	assert.True(t, m.BeginSubmit())
}

func TestCategoryLabelResolvesOthers(t *testing.T) {
	d := Draft{Category: "Network"}
	assert.Equal(t, "Network", d.CategoryLabel())

	d = Draft{Category: model.CategoryOther, CustomCategory: "  Badge reader "}
	assert.Equal(t, "Badge reader", d.CategoryLabel())
}
