// Package backend implements the chat data backend on top of Hasura:
// thread and message rows over GraphQL, the bot trigger action, and the
// live message subscription.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/graphql"
	"github.com/berth-dev/threadline/internal/log"
)

// Hasura is a chat.Backend.
type Hasura struct {
	gql    *graphql.Client
	logger *log.Logger
}

var _ chat.Backend = (*Hasura)(nil)

// New creates a Hasura backend over gql.
func New(gql *graphql.Client, logger *log.Logger) *Hasura {
	if logger == nil {
		logger = log.Nop()
	}
	return &Hasura{gql: gql, logger: logger}
}

// wire types

type chatRow struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r chatRow) thread() chat.Thread {
	return chat.Thread{ID: r.ID, Title: r.Title, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

type messageRow struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	CreatedAt time.Time `json:"created_at"`
}

func (r messageRow) message(threadID string) chat.Message {
	return chat.Message{
		ID:        r.ID,
		ThreadID:  threadID,
		Content:   r.Content,
		Author:    chat.AuthorFromIsUser(r.IsUser),
		CreatedAt: r.CreatedAt,
	}
}

// ListThreads returns the caller's threads, most recently updated first.
func (h *Hasura) ListThreads(ctx context.Context) ([]chat.Thread, error) {
	var out struct {
		Chats []chatRow `json:"chats"`
	}
	if err := h.gql.Do(ctx, graphql.Request{Query: getChatsQuery, OperationName: "GetChats"}, &out); err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	threads := lo.Map(out.Chats, func(r chatRow, _ int) chat.Thread { return r.thread() })
	h.logger.Debug(log.EventThreadsLoaded, zap.Int("count", len(threads)))
	return threads, nil
}

// CreateThread inserts a thread owned by the caller.
func (h *Hasura) CreateThread(ctx context.Context, title string) (chat.Thread, error) {
	if title == "" {
		title = chat.DefaultThreadTitle
	}
	var out struct {
		Chat *chatRow `json:"insert_chats_one"`
	}
	req := graphql.Request{
		Query:         createChatMutation,
		OperationName: "CreateChat",
		Variables:     map[string]any{"title": title},
	}
	if err := h.gql.Do(ctx, req, &out); err != nil {
		return chat.Thread{}, fmt.Errorf("create thread: %w", err)
	}
	if out.Chat == nil {
		return chat.Thread{}, fmt.Errorf("create thread: no row returned")
	}
	h.logger.Event(log.EventThreadCreated, zap.String("thread_id", out.Chat.ID))
	return out.Chat.thread(), nil
}

// InsertMessage persists a user-authored message.
func (h *Hasura) InsertMessage(ctx context.Context, threadID, content string) (chat.Message, error) {
	var out struct {
		Message *messageRow `json:"insert_messages_one"`
	}
	req := graphql.Request{
		Query:         insertMessageMutation,
		OperationName: "InsertMessage",
		Variables:     map[string]any{"chat_id": threadID, "content": content, "is_user": true},
	}
	if err := h.gql.Do(ctx, req, &out); err != nil {
		return chat.Message{}, fmt.Errorf("insert message: %w", err)
	}
	if out.Message == nil {
		return chat.Message{}, fmt.Errorf("insert message: no row returned")
	}
	return out.Message.message(threadID), nil
}

// TriggerReply invokes the sendMessage action that asks the bot to reply.
func (h *Hasura) TriggerReply(ctx context.Context, threadID, content string) (chat.TriggerAck, error) {
	var out struct {
		Ack *struct {
			Success     bool    `json:"success"`
			Message     *string `json:"message"`
			BotResponse *string `json:"bot_response"`
		} `json:"sendMessage"`
	}
	req := graphql.Request{
		Query:         sendMessageAction,
		OperationName: "SendMessage",
		Variables:     map[string]any{"chat_id": threadID, "content": content},
	}
	if err := h.gql.Do(ctx, req, &out); err != nil {
		return chat.TriggerAck{}, fmt.Errorf("trigger reply: %w", err)
	}
	if out.Ack == nil {
		return chat.TriggerAck{}, fmt.Errorf("trigger reply: empty acknowledgement")
	}
	return chat.TriggerAck{
		Success:     out.Ack.Success,
		Message:     lo.FromPtr(out.Ack.Message),
		BotResponse: lo.FromPtr(out.Ack.BotResponse),
	}, nil
}

// SubscribeMessages streams full, ordered snapshots of a thread's messages.
func (h *Hasura) SubscribeMessages(ctx context.Context, threadID string) <-chan chat.FeedEvent {
	out := make(chan chat.FeedEvent, 8)
	events := h.gql.Subscribe(ctx, graphql.Request{
		Query:         subscribeMessages,
		OperationName: "SubscribeToMessages",
		Variables:     map[string]any{"chatId": threadID},
	})

	go func() {
		defer close(out)
		for ev := range events {
			fe := toFeedEvent(threadID, ev)
			if fe.Err != nil && !fe.Reconnecting {
				h.logger.Error(log.EventSubscriptionStopped, fe.Err, zap.String("thread_id", threadID))
			}
			select {
			case out <- fe:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func toFeedEvent(threadID string, ev graphql.Event) chat.FeedEvent {
	fe := chat.FeedEvent{ThreadID: threadID, Err: ev.Err, Reconnecting: ev.Reconnecting}
	if ev.Err != nil {
		return fe
	}
	var data struct {
		Messages []messageRow `json:"messages"`
	}
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		fe.Err = fmt.Errorf("decode messages: %w", err)
		return fe
	}
	fe.Messages = lo.Map(data.Messages, func(r messageRow, _ int) chat.Message { return r.message(threadID) })
	return fe
}
