package tui

import "charm.land/bubbles/v2/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	// Navigation
	Enter key.Binding
	Tab   key.Binding

	// Control
	CtrlC   key.Binding
	NewLine key.Binding

	// Credential form
	ToggleMode     key.Binding
	RevealPassword key.Binding

	// Main screen
	Filter      key.Binding
	NewThread   key.Binding
	SignOut     key.Binding
	ToggleTheme key.Binding
	JumpLatest  key.Binding
	CopyReply   key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "exit"),
	),
	NewLine: key.NewBinding(
		key.WithKeys("shift+enter", "ctrl+j"),
		key.WithHelp("ctrl+j", "new line"),
	),
	ToggleMode: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "sign in / sign up"),
	),
	RevealPassword: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "show password"),
	),
	Filter: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "filter"),
	),
	NewThread: key.NewBinding(
		key.WithKeys("ctrl+n"),
		key.WithHelp("ctrl+n", "new chat"),
	),
	SignOut: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "sign out"),
	),
	ToggleTheme: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "theme"),
	),
	JumpLatest: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("ctrl+g", "latest"),
	),
	CopyReply: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy reply"),
	),
}

// SendBinding returns the binding that submits the composer for the
// configured send key. In alt+enter mode plain enter inserts a newline.
// shiftEnter selects the newline hint for terminals that report
// shift+enter as its own key; ctrl+j works everywhere.
func SendBinding(sendKey string, shiftEnter bool) (send, newline key.Binding) {
	if sendKey == KeyAltEnter {
		return key.NewBinding(key.WithKeys(KeyAltEnter), key.WithHelp("alt+enter", "send")),
			key.NewBinding(key.WithKeys(KeyEnter, KeyShiftEnter, KeyCtrlJ), key.WithHelp("enter", "new line"))
	}
	newline = DefaultKeyMap.NewLine
	if shiftEnter {
		newline.SetHelp(KeyShiftEnter, "new line")
	}
	return key.NewBinding(key.WithKeys(KeyEnter), key.WithHelp("enter", "send")), newline
}

// HelpLine renders bindings as "key desc · key desc".
func HelpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += " · "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}
