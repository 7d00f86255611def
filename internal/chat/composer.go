package chat

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// DefaultMaxChars is the composer's cosmetic character limit.
const DefaultMaxChars = 4000

var (
	// ErrEmptyMessage is returned for empty or whitespace-only drafts.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a draft exceeds the composer limit.
	ErrMessageTooLong = errors.New("message exceeds character limit")
)

// PrepareDraft trims the draft and checks it against the composer limit.
// A limit of zero or less disables the length check.
func PrepareDraft(draft string, maxChars int) (string, error) {
	content := strings.TrimSpace(draft)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if maxChars > 0 && utf8.RuneCountInString(content) > maxChars {
		return "", ErrMessageTooLong
	}
	return content, nil
}

// CanSubmit reports whether the composer's send control is enabled.
func CanSubmit(draft string, maxChars int, sending bool) bool {
	if sending {
		return false
	}
	_, err := PrepareDraft(draft, maxChars)
	return err == nil
}
