// Package views provides TUI view components for threadline.
package views

import (
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/tui"
)

// StateFor maps the session status onto the gate's exclusive view state.
func StateFor(status auth.Status) tui.ViewState {
	switch status {
	case auth.StatusAuthenticated:
		return tui.StateMain
	case auth.StatusAnonymous:
		return tui.StateLogin
	default:
		return tui.StateLoading
	}
}

// ============================================================================
// GateModel
// ============================================================================

// GateModel renders the loading screen shown while the session is restored.
type GateModel struct {
	spinner spinner.Model
	theme   *tui.Theme
	width   int
	height  int
}

// NewGateModel creates a GateModel.
func NewGateModel(theme *tui.Theme, width, height int) GateModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return GateModel{spinner: sp, theme: theme, width: width, height: height}
}

// Init starts the spinner.
func (m GateModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages for the loading screen.
func (m GateModel) Update(msg tea.Msg) (GateModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the loading screen.
func (m GateModel) View() string {
	s := m.theme.S()
	m.spinner.Style = s.Title
	body := m.spinner.View() + " " + s.Dim.Render("Checking your session...")
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}
