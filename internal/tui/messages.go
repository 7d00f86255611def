package tui

import (
	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/chat"
)

// ============================================================================
// Session Messages
// ============================================================================

// AuthResolvedMsg reports the outcome of restoring a stored session.
type AuthResolvedMsg struct {
	Status auth.Status
	Err    error
}

// SubmitCredentialsMsg is sent when the credential form is submitted with
// valid fields.
type SubmitCredentialsMsg struct {
	Mode     auth.Mode
	Email    string
	Password string
}

// SignInResultMsg reports a sign-in attempt.
type SignInResultMsg struct {
	Err error
}

// SignUpResultMsg reports a sign-up attempt.
type SignUpResultMsg struct {
	Email string
	Err   error
}

// SignedOutMsg reports that the local session is gone. Err is the revoke
// failure, if any.
type SignedOutMsg struct {
	Err error
}

// ============================================================================
// Thread Messages
// ============================================================================

// ThreadsLoadedMsg carries the thread list.
type ThreadsLoadedMsg struct {
	Threads []chat.Thread
	Err     error
}

// ThreadCreatedMsg reports a create-thread attempt.
type ThreadCreatedMsg struct {
	Thread chat.Thread
	Err    error
}

// SelectThreadMsg asks the app to open a thread.
type SelectThreadMsg struct {
	ThreadID string
}

// ============================================================================
// Feed Messages
// ============================================================================

// FeedMsg carries one subscription delivery for the thread view opened at
// generation Gen.
type FeedMsg struct {
	ThreadID string
	Gen      int
	Event    chat.FeedEvent
}

// FeedClosedMsg signals that a thread view's subscription channel closed.
type FeedClosedMsg struct {
	ThreadID string
	Gen      int
}

// SendRequestMsg is sent by the thread view when the composer submits.
type SendRequestMsg struct {
	ThreadID string
	Gen      int
	Content  string
}

// SendResultMsg reports the trigger acknowledgement (or failure) of a send.
type SendResultMsg struct {
	ThreadID string
	Gen      int
	Ack      chat.TriggerAck
	Err      error
}

// ComposeTimeoutMsg drops a composing indicator that outlived its wait.
type ComposeTimeoutMsg struct {
	ThreadID string
	Gen      int
	Seq      int
}

// ============================================================================
// UI Messages
// ============================================================================

// ToastMsg asks the app to show a toast.
type ToastMsg struct {
	Kind ToastKind
	Text string
}

// ToastExpireMsg removes a toast.
type ToastExpireMsg struct {
	ID int
}

// ThemeSavedMsg reports persisting the theme choice.
type ThemeSavedMsg struct {
	Err error
}

// CtrlCResetMsg resets the Ctrl+C confirmation state after timeout.
type CtrlCResetMsg struct{}
