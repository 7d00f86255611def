package views

import (
	tea "charm.land/bubbletea/v2"

	"github.com/berth-dev/threadline/internal/tui"
)

// drain runs cmd and any batched children, collecting their messages.
// Only use it on commands that do not sleep.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func findMsg[T any](msgs []tea.Msg) (T, bool) {
	for _, m := range msgs {
		if v, ok := m.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func typeText(s string) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: []rune(s)[0], Text: s}
}

func press(code rune, mods ...tea.KeyMod) tea.KeyPressMsg {
	var mod tea.KeyMod
	for _, m := range mods {
		mod |= m
	}
	return tea.KeyPressMsg{Code: code, Mod: mod}
}

func ctrl(r rune) tea.KeyPressMsg {
	return press(r, tea.ModCtrl)
}

func darkTheme() *tui.Theme {
	return tui.NewTheme(tui.ThemeDark)
}
