// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

// Common key binding constants.
const (
	KeyCtrlC      = "ctrl+c"
	KeyTab        = "tab"
	KeyShiftTab   = "shift+tab"
	KeyEnter      = "enter"
	KeyAltEnter   = "alt+enter"
	KeyShiftEnter = "shift+enter"
	KeyCtrlJ      = "ctrl+j"
	KeyUp         = "up"
	KeyDown       = "down"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the TUI program with the given model.
// If stdout is a TTY, the model's view selects the alternate screen.
// Otherwise, it prints guidance towards the non-interactive commands.
func Run(m tea.Model) error {
	if IsTTY() {
		p := tea.NewProgram(m)
		_, err := p.Run()
		return err
	}
	return NewFallbackRunner(os.Stdout).Run()
}
