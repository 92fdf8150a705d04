// Package registry is the triage dashboard: the live ticket list with
// summary counts, filter tabs, and search. It never reads the store
// itself; the root model feeds it snapshots from the stream watcher.
package registry

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/ticket-triage/internal/keys"
	"github.com/nhle/ticket-triage/internal/model"
	"github.com/nhle/ticket-triage/internal/theme"
	"github.com/nhle/ticket-triage/internal/view"
)

// SelectedTicketMsg is sent when the user opens a ticket's detail view.
type SelectedTicketMsg struct {
	TicketID string
}

// severityCycle is the order the severity filter steps through; the empty
// entry disables it.
var severityCycle = []string{
	"",
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
}

// statusCycle is the order the status tabs step through.
var statusCycle = []string{
	view.FilterAll,
	view.FilterUnresolved,
	view.FilterResolved,
}

// Model is the dashboard list view.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	filters     view.Filters
	tickets     []model.Ticket
	summary     model.TicketSummary
	departments []string
	deptIndex   int

	searchMode  bool
	searchInput textinput.Model

	spinner spinner.Model
	loaded  bool
	loadErr error

	width  int
	height int
}

// New creates the dashboard model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, TicketDelegate{}, width, height-4)
	l.Title = "Tickets"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search tickets..."
	si.Prompt = "/ "
	si.Width = width - 4

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorBlue)

	return Model{
		list:        l,
		keys:        k,
		filters:     view.Filters{Status: view.FilterAll},
		searchInput: si,
		spinner:     sp,
		width:       width,
		height:      height,
	}
}

// Init starts the syncing spinner shown until the first snapshot lands.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSnapshot replaces the dashboard's ticket set with a delivered
// snapshot and reapplies the active filters. A snapshot also clears any
// previous load error.
func (m *Model) SetSnapshot(tickets []model.Ticket) {
	m.tickets = view.SortTriage(tickets)
	m.summary = view.Summarize(m.tickets)
	m.departments = view.Departments(m.tickets)
	m.loaded = true
	m.loadErr = nil
	m.clampDeptIndex()
	m.refreshItems()
}

// SetError puts the dashboard into the persistent unable-to-load state.
// The last good snapshot stays visible underneath the banner.
func (m *Model) SetError(err error) {
	m.loadErr = err
	m.loaded = true
}

// Summary returns the counts derived from the current snapshot.
func (m Model) Summary() model.TicketSummary { return m.summary }

// SearchActive reports whether the search bar owns key input, so the
// parent keeps its single-letter shortcuts out of the way.
func (m Model) SearchActive() bool { return m.searchMode }

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while the search bar is focused.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.filters.Query = m.searchInput.Value()
		m.refreshItems()
		return m, nil

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filters.Query = ""
		m.refreshItems()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(TicketItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTicketMsg{TicketID: item.Ticket.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.CycleStatus):
		m.filters.Status = cycle(statusCycle, m.filters.Status)
		m.refreshItems()
		return m, nil

	case key.Matches(msg, m.keys.CycleSeverity):
		m.filters.Severity = cycle(severityCycle, m.filters.Severity)
		m.refreshItems()
		return m, nil

	case key.Matches(msg, m.keys.CycleDepartment):
		m.cycleDepartment()
		m.refreshItems()
		return m, nil

	case key.Matches(msg, m.keys.ClearFilters):
		m.filters = view.Filters{Status: view.FilterAll}
		m.deptIndex = 0
		m.searchInput.Reset()
		m.refreshItems()
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// cycle steps to the entry after current, wrapping at the end. Values not
// in the list restart the cycle.
func cycle(values []string, current string) string {
	for i, v := range values {
		if v == current {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// cycleDepartment steps the department filter through the departments
// present in the current snapshot, with an "all" position at index 0.
func (m *Model) cycleDepartment() {
	if len(m.departments) == 0 {
		m.filters.Department = ""
		m.deptIndex = 0
		return
	}

	m.deptIndex = (m.deptIndex + 1) % (len(m.departments) + 1)
	if m.deptIndex == 0 {
		m.filters.Department = ""
	} else {
		m.filters.Department = m.departments[m.deptIndex-1]
	}
}

// clampDeptIndex keeps the department cursor valid when a snapshot drops
// the selected department.
func (m *Model) clampDeptIndex() {
	if m.filters.Department == "" {
		m.deptIndex = 0
		return
	}
	for i, d := range m.departments {
		if d == m.filters.Department {
			m.deptIndex = i + 1
			return
		}
	}
	m.deptIndex = 0
	m.filters.Department = ""
}

// refreshItems reapplies the filters to the current snapshot.
func (m *Model) refreshItems() {
	filtered := view.Apply(m.tickets, m.filters)
	items := make([]list.Item, len(filtered))
	for i, t := range filtered {
		items[i] = TicketItem{Ticket: t}
	}
	m.list.SetItems(items)
}

// View renders the dashboard.
func (m Model) View() string {
	if !m.loaded {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Render(m.spinner.View() + " syncing tickets...")
	}

	sections := []string{m.renderSummary()}

	if m.loadErr != nil {
		sections = append(sections, theme.ErrorStyle.Render(
			"Unable to load tickets. Showing last known data; restart to reconnect."))
	}

	if m.searchMode {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View()))
	}

	if m.filters.Active() {
		sections = append(sections, theme.HelpStyle.Render(
			fmt.Sprintf("Showing %d of %d tickets  (c to clear filters)",
				len(m.list.Items()), m.summary.Total)))
	}

	if len(m.list.Items()) == 0 {
		sections = append(sections, m.renderEmptyState())
	} else {
		sections = append(sections, m.list.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderSummary draws the counts line and the filter tabs.
func (m Model) renderSummary() string {
	counts := fmt.Sprintf("Total %d  •  Unresolved %d  •  Resolved %d",
		m.summary.Total, m.summary.Unresolved, m.summary.Resolved)

	tabs := make([]string, 0, len(statusCycle))
	for _, tab := range statusCycle {
		label := strings.ToUpper(tab[:1]) + tab[1:]
		if tab == m.filters.Status || (m.filters.Status == "" && tab == view.FilterAll) {
			tabs = append(tabs, theme.SelectedItemStyle.Render(label))
		} else {
			tabs = append(tabs, theme.ListItemStyle.Render(label))
		}
	}

	extras := []string{}
	if m.filters.Severity != "" {
		extras = append(extras, "severity: "+m.filters.Severity)
	}
	if m.filters.Department != "" {
		extras = append(extras, "dept: "+m.filters.Department)
	}
	extraStr := ""
	if len(extras) > 0 {
		extraStr = theme.HelpStyle.Render("  [" + strings.Join(extras, ", ") + "]")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Padding(0, 1).Render(counts),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...)+extraStr,
	)
}

// renderEmptyState shows guidance text when no tickets match.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Align(lipgloss.Center).
		Padding(2, 0).
		Foreground(theme.ColorGray)

	if m.filters.Active() {
		return style.Render("No matching tickets.\nPress c to clear the filters.")
	}
	return style.Render("No tickets yet.\nPress n to submit one.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-4)
	m.searchInput.Width = width - 4
}
