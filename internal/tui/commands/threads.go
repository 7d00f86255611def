package commands

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/config"
	"github.com/berth-dev/threadline/internal/tui"
)

// Prefs remembers the open thread between runs.
type Prefs interface {
	SetLastThread(threadID string) error
}

// LoadThreadsCmd fetches the thread list.
func LoadThreadsCmd(store chat.ThreadStore, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		threads, err := store.ListThreads(ctx)
		return tui.ThreadsLoadedMsg{Threads: threads, Err: err}
	}
}

// CreateThreadCmd creates a thread with the default title.
func CreateThreadCmd(store chat.ThreadStore, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		thread, err := store.CreateThread(ctx, chat.DefaultThreadTitle)
		return tui.ThreadCreatedMsg{Thread: thread, Err: err}
	}
}

// SaveLastThreadCmd persists the open thread. Failures are not surfaced.
func SaveLastThreadCmd(prefs Prefs, threadID string) tea.Cmd {
	if prefs == nil {
		return nil
	}
	return func() tea.Msg {
		_ = prefs.SetLastThread(threadID)
		return nil
	}
}

// SaveThemeCmd writes the theme choice to the config file.
func SaveThemeCmd(dir, theme string) tea.Cmd {
	if dir == "" {
		return nil
	}
	return func() tea.Msg {
		return tui.ThemeSavedMsg{Err: config.SetTheme(dir, theme)}
	}
}
