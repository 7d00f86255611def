package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// MatchTitle reports whether title contains query, ignoring case.
// An empty query matches everything.
func MatchTitle(title, query string) bool {
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}

// FilterThreads returns the threads whose title matches query, keeping the
// input order.
func FilterThreads(threads []Thread, query string) []Thread {
	return lo.Filter(threads, func(t Thread, _ int) bool {
		return MatchTitle(t.Title, query)
	})
}

// RelativeTime formats t relative to now the way the sidebar shows it.
func RelativeTime(now, t time.Time) string {
	minutes := int(now.Sub(t).Minutes())
	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh ago", minutes/60)
	case minutes < 7*24*60:
		return fmt.Sprintf("%dd ago", minutes/(24*60))
	default:
		return t.Local().Format("2006-01-02")
	}
}

// Username derives a display name from an email address.
func Username(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "User"
	}
	return local
}
