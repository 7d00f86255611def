// Package chat holds the client-side conversation model: threads, messages,
// the live feed ordering, composer rules, and the send flow.
package chat

import "time"

// DefaultThreadTitle is the title given to threads created from the sidebar.
const DefaultThreadTitle = "New Chat"

// Author identifies who wrote a message.
type Author int

const (
	AuthorUser Author = iota
	AuthorBot
)

// String returns the display name for the author.
func (a Author) String() string {
	switch a {
	case AuthorUser:
		return "You"
	case AuthorBot:
		return "AI"
	default:
		return "unknown"
	}
}

// AuthorFromIsUser maps the backend's is_user column onto an Author.
func AuthorFromIsUser(isUser bool) Author {
	if isUser {
		return AuthorUser
	}
	return AuthorBot
}

// Thread is a named conversation container.
type Thread struct {
	ID        string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one immutable unit of conversation content.
type Message struct {
	ID        string
	ThreadID  string
	Content   string
	Author    Author
	CreatedAt time.Time
}

// IsBot reports whether the message was written by the bot.
func (m Message) IsBot() bool {
	return m.Author == AuthorBot
}

// TriggerAck is the bot-trigger acknowledgement. BotResponse is informational
// only; the reply row reaches the feed through the live subscription.
type TriggerAck struct {
	Success     bool
	Message     string
	BotResponse string
}

// FeedEvent is one delivery from a live message subscription. Exactly one
// of Messages or Err is meaningful; Reconnecting marks a transient drop that
// the transport is recovering from.
type FeedEvent struct {
	ThreadID     string
	Messages     []Message
	Err          error
	Reconnecting bool
}
