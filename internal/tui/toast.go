package tui

import (
	"strings"
	"time"
)

// ToastKind selects a toast's color and lifetime.
type ToastKind int

const (
	ToastInfo ToastKind = iota
	ToastSuccess
	ToastError
)

// Toast is a transient notification.
type Toast struct {
	ID   int
	Kind ToastKind
	Text string
}

// ToastDurations are the lifetimes per kind.
type ToastDurations struct {
	Default time.Duration
	Success time.Duration
	Error   time.Duration
}

// DefaultToastDurations matches the web client's notifier.
var DefaultToastDurations = ToastDurations{
	Default: 4 * time.Second,
	Success: 3 * time.Second,
	Error:   5 * time.Second,
}

// Toaster holds the visible toasts, oldest first.
type Toaster struct {
	items     []Toast
	next      int
	durations ToastDurations
}

// maxToasts bounds how many toasts are stacked at once.
const maxToasts = 3

// NewToaster creates a Toaster. Zero durations fall back to the defaults.
func NewToaster(d ToastDurations) *Toaster {
	if d.Default <= 0 {
		d.Default = DefaultToastDurations.Default
	}
	if d.Success <= 0 {
		d.Success = DefaultToastDurations.Success
	}
	if d.Error <= 0 {
		d.Error = DefaultToastDurations.Error
	}
	return &Toaster{durations: d}
}

// Push adds a toast and returns its ID with how long it should stay.
func (t *Toaster) Push(kind ToastKind, text string) (int, time.Duration) {
	t.next++
	t.items = append(t.items, Toast{ID: t.next, Kind: kind, Text: text})
	if len(t.items) > maxToasts {
		t.items = t.items[len(t.items)-maxToasts:]
	}
	switch kind {
	case ToastSuccess:
		return t.next, t.durations.Success
	case ToastError:
		return t.next, t.durations.Error
	default:
		return t.next, t.durations.Default
	}
}

// Dismiss removes the toast with id, if still visible.
func (t *Toaster) Dismiss(id int) {
	for i, item := range t.items {
		if item.ID == id {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

// Items returns the visible toasts.
func (t *Toaster) Items() []Toast {
	return t.items
}

// View renders the toasts one per line.
func (t *Toaster) View(theme *Theme) string {
	if len(t.items) == 0 {
		return ""
	}
	s := theme.S()
	lines := make([]string, 0, len(t.items))
	for _, item := range t.items {
		switch item.Kind {
		case ToastSuccess:
			lines = append(lines, s.Success.Render("✓ "+item.Text))
		case ToastError:
			lines = append(lines, s.Error.Render("✗ "+item.Text))
		default:
			lines = append(lines, s.Warning.Render("• "+item.Text))
		}
	}
	return strings.Join(lines, "\n")
}
