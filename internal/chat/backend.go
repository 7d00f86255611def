package chat

import "context"

// ThreadStore lists and creates the caller's threads.
type ThreadStore interface {
	ListThreads(ctx context.Context) ([]Thread, error)
	CreateThread(ctx context.Context, title string) (Thread, error)
}

// MessageSubscriber opens a live, ordered view of a thread's messages.
// The returned channel is closed when ctx is cancelled or the subscription
// fails for good.
type MessageSubscriber interface {
	SubscribeMessages(ctx context.Context, threadID string) <-chan FeedEvent
}

// Backend is the full data backend as the client consumes it.
type Backend interface {
	ThreadStore
	SendBackend
	MessageSubscriber
}
