package commands

import (
	"context"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/tui"
)

// SubscribeCmd opens the live feed for a thread view and returns the first
// delivery. The subscription lives until ctx is cancelled.
func SubscribeCmd(ctx context.Context, sub chat.MessageSubscriber, threadID string, gen int) (<-chan chat.FeedEvent, tea.Cmd) {
	events := sub.SubscribeMessages(ctx, threadID)
	return events, ListenFeedCmd(threadID, gen, events)
}

// ListenFeedCmd waits for the next subscription delivery.
// Returns FeedMsg for each event, or FeedClosedMsg when the channel closes.
func ListenFeedCmd(threadID string, gen int, events <-chan chat.FeedEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return tui.FeedClosedMsg{ThreadID: threadID, Gen: gen}
		}
		return tui.FeedMsg{ThreadID: threadID, Gen: gen, Event: ev}
	}
}

// SendCmd runs the send flow on its own context, so switching threads does
// not abort a send in flight.
func SendCmd(sender *chat.Sender, threadID string, gen int, content string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		ack, err := sender.Send(ctx, threadID, content)
		return tui.SendResultMsg{ThreadID: threadID, Gen: gen, Ack: ack, Err: err}
	}
}

// ToastCmd emits a toast request.
func ToastCmd(kind tui.ToastKind, text string) tea.Cmd {
	return func() tea.Msg {
		return tui.ToastMsg{Kind: kind, Text: text}
	}
}
