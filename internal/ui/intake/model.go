// Package intake is the requester-facing submission flow: one card per
// wizard step, a minimum-duration processing overlay, and a timed
// success/failure notice.
package intake

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/store"
	"github.com/nhle/ticket-triage/internal/theme"
	"github.com/nhle/ticket-triage/internal/wizard"
)

// minProcessing is how long the processing overlay stays up even when the
// write finishes instantly.
const minProcessing = 4 * time.Second

// noticeDuration is how long the result notice takes to drain before it
// dismisses itself.
const noticeDuration = 4 * time.Second

// noticeTickEvery drives the drain animation.
const noticeTickEvery = 100 * time.Millisecond

// BackMsg signals the parent to leave the intake flow.
type BackMsg struct{}

// SubmitMsg asks the parent to create the ticket.
type SubmitMsg struct {
	Draft store.TicketDraft
}

// SubmitResultMsg reports the outcome of the create back into the flow.
type SubmitResultMsg struct {
	Err error
}

// internal timer messages
type (
	minWaitDoneMsg struct{}
	noticeTickMsg  struct{}
)

type phase int

const (
	phaseForm phase = iota
	phaseProcessing
	phaseNotice
)

// formBindings holds step field values on the heap so huh's Value()
// pointers stay valid across Bubble Tea model copies.
type formBindings struct {
	name       string
	department string
	category   string
	custom     string
	severity   string
	details    string
}

// Model is the intake flow view.
type Model struct {
	machine *wizard.Machine
	fb      *formBindings
	form    *huh.Form

	phase       phase
	minWaitDone bool
	resultDone  bool
	resultErr   error

	progress   progress.Model
	noticeLeft time.Duration

	width  int
	height int
}

// New creates the intake model positioned on the first step.
func New(width, height int) Model {
	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	m := Model{
		machine:  wizard.New(),
		fb:       &formBindings{},
		progress: p,
		width:    width,
		height:   height,
	}
	m.form = m.buildStepForm()
	return m
}

// Init starts the current step's form.
func (m Model) Init() tea.Cmd {
	if m.form != nil {
		return m.form.Init()
	}
	return nil
}

// Update handles messages for the intake flow.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SubmitResultMsg:
		m.resultDone = true
		m.resultErr = msg.Err
		return m.maybeFinishProcessing()

	case minWaitDoneMsg:
		m.minWaitDone = true
		return m.maybeFinishProcessing()

	case noticeTickMsg:
		if m.phase != phaseNotice {
			return m, nil
		}
		m.noticeLeft -= noticeTickEvery
		if m.noticeLeft <= 0 {
			return m.dismissNotice()
		}
		return m, tea.Tick(noticeTickEvery, func(time.Time) tea.Msg { return noticeTickMsg{} })

	case tea.KeyMsg:
		switch m.phase {
		case phaseProcessing:
			// The overlay is not dismissible; the requester waits it out.
			return m, nil
		case phaseNotice:
			return m.dismissNotice()
		}
		return m.handleFormKeys(msg)
	}

	if m.phase == phaseForm && m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

// handleFormKeys processes key input while a step card is up.
func (m Model) handleFormKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	if msg.String() == "esc" {
		if m.machine.Submitting() {
			return m, nil
		}
		if m.machine.Step() == wizard.StepUserDetails {
			return m, func() tea.Msg { return BackMsg{} }
		}
		m.machine.Prev()
		return m.enterStep()
	}

	if m.machine.Step() == wizard.StepSummary {
		return m.handleSummaryKeys(msg)
	}

	return m.updateForm(msg)
}

// handleSummaryKeys drives the summary card, which has no form.
func (m Model) handleSummaryKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if !m.machine.BeginSubmit() {
			return m, nil
		}
		m.phase = phaseProcessing
		m.minWaitDone = false
		m.resultDone = false

		draft := m.machine.Draft()
		payload := store.TicketDraft{
			Name:             strings.TrimSpace(draft.Name),
			Department:       strings.TrimSpace(draft.Department),
			Category:         draft.CategoryLabel(),
			Severity:         draft.Severity,
			Details:          strings.TrimSpace(draft.Details),
			SubmittedAtLocal: time.Now().Format(model.SubmittedAtLocalLayout),
		}

		return m, tea.Batch(
			func() tea.Msg { return SubmitMsg{Draft: payload} },
			tea.Tick(minProcessing, func(time.Time) tea.Msg { return minWaitDoneMsg{} }),
		)
	}
	return m, nil
}

// updateForm routes a message into the current step's form and advances
// the machine when the form completes.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.pushBindings()
		if m.machine.Next() {
			return m.enterStep()
		}
		// Validation refused the step (e.g. Others without a label);
		// rebuild the card so the requester can fix it.
		return m.enterStep()

	case huh.StateAborted:
		if m.machine.Step() == wizard.StepUserDetails {
			return m, func() tea.Msg { return BackMsg{} }
		}
		m.machine.Prev()
		return m.enterStep()
	}

	return m, cmd
}

// maybeFinishProcessing moves to the notice once both the write and the
// minimum wait are done.
func (m Model) maybeFinishProcessing() (Model, tea.Cmd) {
	if m.phase != phaseProcessing || !m.minWaitDone || !m.resultDone {
		return m, nil
	}

	m.machine.FinishSubmit(m.resultErr == nil)
	m.phase = phaseNotice
	m.noticeLeft = noticeDuration
	return m, tea.Tick(noticeTickEvery, func(time.Time) tea.Msg { return noticeTickMsg{} })
}

// dismissNotice closes the result notice. Success leaves the flow with a
// fresh machine behind it; failure returns to the summary with the draft
// intact for a retry.
func (m Model) dismissNotice() (Model, tea.Cmd) {
	success := m.resultErr == nil
	m.phase = phaseForm
	m.resultErr = nil

	if success {
		m.syncBindings()
		m.form = m.buildStepForm()
		return m, tea.Batch(
			m.form.Init(),
			func() tea.Msg { return BackMsg{} },
		)
	}

	next, cmd := m.enterStep()
	return next, cmd
}

// enterStep rebuilds the card for the machine's current step.
func (m Model) enterStep() (Model, tea.Cmd) {
	m.syncBindings()
	m.form = m.buildStepForm()
	if m.form == nil {
		return m, nil
	}
	return m, m.form.Init()
}

// pushBindings copies the form values into the machine, which applies the
// hard caps.
func (m *Model) pushBindings() {
	m.machine.SetName(m.fb.name)
	m.machine.SetDepartment(m.fb.department)
	m.machine.SetCategory(m.fb.category)
	m.machine.SetCustomCategory(m.fb.custom)
	m.machine.SetSeverity(m.fb.severity)
	m.machine.SetDetails(m.fb.details)
}

// syncBindings copies the machine's draft back into the form bindings.
func (m *Model) syncBindings() {
	d := m.machine.Draft()
	m.fb.name = d.Name
	m.fb.department = d.Department
	m.fb.category = d.Category
	m.fb.custom = d.CustomCategory
	m.fb.severity = d.Severity
	m.fb.details = d.Details
}

// buildStepForm creates the huh form for the current step. The summary
// step has no form.
func (m *Model) buildStepForm() *huh.Form {
	var fields []huh.Field

	switch m.machine.Step() {
	case wizard.StepUserDetails:
		fields = []huh.Field{
			huh.NewInput().
				Title("Name").
				Placeholder("Your name").
				Value(&m.fb.name).
				Validate(validateRequired("Name")),
			huh.NewInput().
				Title("Department").
				Placeholder("Your department").
				Value(&m.fb.department).
				Validate(validateRequired("Department")),
		}

	case wizard.StepCategory:
		opts := make([]huh.Option[string], len(model.CategoryOptions))
		for i, c := range model.CategoryOptions {
			opts[i] = huh.NewOption(c, c)
		}
		fields = []huh.Field{
			huh.NewSelect[string]().
				Title("Category").
				Options(opts...).
				Value(&m.fb.category),
			huh.NewInput().
				Title(fmt.Sprintf("Custom label (for %s, max %d chars)",
					model.CategoryOther, model.MaxCategoryLen)).
				CharLimit(model.MaxCategoryLen).
				Value(&m.fb.custom).
				Validate(m.validateCustom),
		}

	case wizard.StepSeverity:
		opts := make([]huh.Option[string], len(model.SeverityOptions))
		for i, s := range model.SeverityOptions {
			opts[i] = huh.NewOption(s, s)
		}
		fields = []huh.Field{
			huh.NewSelect[string]().
				Title("Severity").
				Options(opts...).
				Value(&m.fb.severity),
		}

	case wizard.StepDetails:
		fields = []huh.Field{
			huh.NewText().
				Title(fmt.Sprintf("Details (max %d chars)", model.MaxDetailsLen)).
				CharLimit(model.MaxDetailsLen).
				Placeholder("Describe the issue...").
				Value(&m.fb.details).
				Validate(validateRequired("Details")),
		}

	default:
		return nil
	}

	return huh.NewForm(huh.NewGroup(fields...)).
		WithWidth(m.formWidth()).
		WithHeight(m.formHeight())
}

// validateCustom requires the custom label only when "Others" is chosen.
func (m *Model) validateCustom(s string) error {
	if m.fb.category != model.CategoryOther {
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("a custom label is required for %s", model.CategoryOther)
	}
	return nil
}

// View renders the intake flow.
func (m Model) View() string {
	switch m.phase {
	case phaseProcessing:
		return m.renderOverlay("Submitting your ticket...\n\nPlease wait.")
	case phaseNotice:
		return m.renderNotice()
	}

	header := m.renderBreadcrumb()

	var body string
	if m.machine.Step() == wizard.StepSummary {
		body = m.renderSummary()
	} else if m.form != nil {
		body = m.form.View()
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

// renderBreadcrumb shows the step cards with the visited ones lit.
func (m Model) renderBreadcrumb() string {
	parts := make([]string, 0, int(wizard.StepSummary)+1)
	for s := wizard.StepUserDetails; s <= wizard.StepSummary; s++ {
		label := s.String()
		switch {
		case s == m.machine.Step():
			parts = append(parts, theme.SelectedItemStyle.Render(label))
		case s <= m.machine.HighWater():
			parts = append(parts, theme.ListItemStyle.Render(label))
		default:
			parts = append(parts, theme.HelpStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderSummary draws the review card.
func (m Model) renderSummary() string {
	d := m.machine.Draft()
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	row := func(label, val string) string {
		return fmt.Sprintf("%s %s", metaStyle.Render(label), valStyle.Render(val))
	}

	lines := []string{
		row("Name:      ", d.Name),
		row("Department:", d.Department),
		row("Category:  ", d.CategoryLabel()),
		row("Severity:  ", d.Severity),
		"",
		metaStyle.Render("Details"),
		d.Details,
		"",
		theme.HelpStyle.Render("enter submit · esc back"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderNotice draws the result notice with its draining bar.
func (m Model) renderNotice() string {
	var headline string
	if m.resultErr == nil {
		headline = lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorGreen).
			Render("Ticket submitted")
	} else {
		headline = theme.ErrorStyle.Render(
			"Submission failed — your draft is saved, press any key to retry")
	}

	pct := float64(m.noticeLeft) / float64(noticeDuration)
	bar := m.progress.ViewAs(pct)

	return m.renderOverlay(lipgloss.JoinVertical(lipgloss.Center,
		headline, "", bar, "",
		theme.HelpStyle.Render("press any key to dismiss")))
}

// renderOverlay centers a framed card in the view area.
func (m Model) renderOverlay(body string) string {
	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		theme.NoticeStyle.Render(body),
	)
}

// SetSize updates the flow dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 6
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
