// Package detail renders one ticket read-only, with the staff workflow
// actions: status transitions and the resolution form that gates the
// terminal transition.
package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticket-triage/internal/keys"
	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/status"
	"github.com/nhle/ticket-triage/internal/theme"
)

// BackMsg signals the parent to navigate back to the dashboard.
type BackMsg struct{}

// TicketLoadedMsg carries the loaded ticket.
type TicketLoadedMsg struct {
	Ticket *model.Ticket
	Err    error
}

// AdvanceMsg asks the parent to run a status transition. Resolution is
// set only for the terminal transition.
type AdvanceMsg struct {
	TicketID   string
	Target     string
	Resolution *model.Resolution
}

// formBindings holds resolution field values on the heap so huh's Value()
// pointers stay valid across Bubble Tea model copies.
type formBindings struct {
	agent     string
	situation string
	solution  string
}

// Model is the ticket detail view component.
type Model struct {
	ticket   *model.Ticket
	viewport viewport.Model
	keys     *keys.KeyMap

	form *huh.Form
	fb   *formBindings

	notice  string
	loading bool
	width   int
	height  int
}

// New creates a detail view model.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     k,
		fb:       &formBindings{},
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// FormActive reports whether the resolution form currently owns input.
func (m Model) FormActive() bool { return m.form != nil }

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TicketLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.notice = "Unable to load ticket: " + msg.Err.Error()
			return m, nil
		}
		m.SetTicket(msg.Ticket)
		return m, nil

	case tea.KeyMsg:
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m.handleKeys(msg)
	}

	if m.form != nil {
		return m.updateForm(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKeys processes key input while the viewport owns the screen.
func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }
	}

	if m.ticket != nil && !status.IsTerminal(m.ticket.Status) {
		switch msg.String() {
		case "1":
			return m, m.advance(status.Open, nil)
		case "2":
			return m, m.advance(status.InProgress, nil)
		case "3":
			// Terminal transition: solicit the narrative first, commit on
			// form completion.
			m.fb.agent = ""
			m.fb.situation = ""
			m.fb.solution = ""
			m.form = m.buildResolutionForm()
			return m, m.form.Init()
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// updateForm routes messages into the resolution form.
func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		res := &model.Resolution{
			AgentName: strings.TrimSpace(m.fb.agent),
			Situation: strings.TrimSpace(m.fb.situation),
			Solution:  strings.TrimSpace(m.fb.solution),
		}
		m.form = nil
		return m, m.advance(status.Complete, res)
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, nil
	}

	return m, cmd
}

// advance emits the transition request for the parent to execute.
func (m Model) advance(target string, res *model.Resolution) tea.Cmd {
	id := m.ticket.ID
	return func() tea.Msg {
		return AdvanceMsg{TicketID: id, Target: target, Resolution: res}
	}
}

// buildResolutionForm creates the three-field narrative form. Every field
// is required; huh re-prompts until they validate.
func (m *Model) buildResolutionForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Agent name").
				Placeholder("Who resolved this?").
				Value(&m.fb.agent).
				Validate(validateRequired("Agent name")),
			huh.NewText().
				Title("Situation").
				Placeholder("What was wrong?").
				Value(&m.fb.situation).
				Validate(validateRequired("Situation")),
			huh.NewText().
				Title("Solution").
				Placeholder("What fixed it?").
				Value(&m.fb.solution).
				Validate(validateRequired("Solution")),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Loading ticket...")
	}

	if m.form != nil {
		title := lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render("Resolve Ticket")
		return lipgloss.NewStyle().
			Padding(1, 2).
			Render(title + "\n" + m.form.View())
	}

	if m.ticket == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No ticket selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.ticket == nil {
		return ""
	}

	t := m.ticket
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(
		fmt.Sprintf("Ticket from %s (%s)", t.Name, t.Department)))

	statusBadge := theme.StatusStyle(t.Status).Render(status.NormalizeTriage(t.Status))
	sevBadge := theme.SeverityStyle(t.Severity).Render(t.Severity)
	sections = append(sections, lipgloss.JoinHorizontal(
		lipgloss.Top, statusBadge, "  ", sevBadge))
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf("%s  %s",
		metaStyle.Render("Category: "), valStyle.Render(t.Category)))
	sections = append(sections, fmt.Sprintf("%s %s",
		metaStyle.Render("Submitted:"), valStyle.Render(submittedLabel(*t))))
	if t.ResolvedAt != nil {
		sections = append(sections, fmt.Sprintf("%s  %s",
			metaStyle.Render("Resolved: "),
			valStyle.Render(t.ResolvedAt.Local().Format("2006-01-02 15:04"))))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))
	sections = append(sections, "", separator, "")

	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	sections = append(sections, headerStyle.Render("Details"))
	details := t.Details
	if details == "" {
		details = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No details provided")
	}
	sections = append(sections, details)

	if status.IsTerminal(t.Status) {
		sections = append(sections, "", separator, "")
		sections = append(sections, headerStyle.Render("Resolution"))
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render("Agent:"), valStyle.Render(t.AgentName)))
		sections = append(sections, "")
		sections = append(sections, metaStyle.Render("Situation"))
		sections = append(sections, t.Situation)
		sections = append(sections, "")
		sections = append(sections, metaStyle.Render("Solution"))
		sections = append(sections, t.Solution)
		sections = append(sections, "")
		sections = append(sections, theme.HelpStyle.Render(
			"This ticket is resolved and can no longer be changed."))
	} else {
		sections = append(sections, "", separator, "")
		sections = append(sections, theme.HelpStyle.Render(
			"1 open · 2 in progress · 3 resolve (requires a narrative) · esc back"))
	}

	if m.notice != "" {
		sections = append(sections, "", theme.ErrorStyle.Render(m.notice))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// submittedLabel prefers the store timestamp, falling back to the verbatim
// client-rendered string.
func submittedLabel(t model.Ticket) string {
	if !t.SubmittedAt.IsZero() {
		return t.SubmittedAt.Local().Format("2006-01-02 15:04")
	}
	if t.SubmittedAtLocal != "" {
		return t.SubmittedAtLocal
	}
	return "unknown"
}

// SetTicket updates the ticket being displayed and re-renders the content.
func (m *Model) SetTicket(t *model.Ticket) {
	m.ticket = t
	m.loading = false
	m.notice = ""
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetNotice shows a transient error line, typically a refused transition.
func (m *Model) SetNotice(notice string) {
	m.notice = notice
	m.viewport.SetContent(m.renderContent())
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
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
	h := m.height - 4
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
