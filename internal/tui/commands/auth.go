// Package commands provides Bubble Tea commands for TUI operations.
// Each command runs its network call off the update loop and reports back
// with a typed message.
package commands

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/tui"
)

// Session is the identity provider session as the TUI drives it.
type Session interface {
	Restore(ctx context.Context) (auth.Status, error)
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
	SignUp(ctx context.Context, email, password string) error
	SignOut(ctx context.Context) error
	User() auth.User
}

// RestoreCmd resolves the loading state from the stored session.
func RestoreCmd(s Session, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		status, err := s.Restore(ctx)
		return tui.AuthResolvedMsg{Status: status, Err: err}
	}
}

// SignInCmd authenticates with email and password.
func SignInCmd(s Session, email, password string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		_, err := s.SignIn(ctx, email, password)
		return tui.SignInResultMsg{Err: err}
	}
}

// SignUpCmd registers a new account.
func SignUpCmd(s Session, email, password string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		err := s.SignUp(ctx, email, password)
		return tui.SignUpResultMsg{Email: email, Err: err}
	}
}

// SignOutCmd ends the session.
func SignOutCmd(s Session, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return tui.SignedOutMsg{Err: s.SignOut(ctx)}
	}
}
