// Package testutil provides fakes and fixtures shared by threadline tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/chat"
)

// TempConfigDir creates a temporary config directory holding the given
// files and returns its path.
func TempConfigDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// BaseTime is the fixed clock used by fixtures.
var BaseTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// Msg builds a message created offset seconds after BaseTime.
func Msg(threadID, id string, author chat.Author, content string, offset int) chat.Message {
	return chat.Message{
		ID:        id,
		ThreadID:  threadID,
		Content:   content,
		Author:    author,
		CreatedAt: BaseTime.Add(time.Duration(offset) * time.Second),
	}
}

// Thread builds a thread updated offset minutes after BaseTime.
func Thread(id, title string, offset int) chat.Thread {
	at := BaseTime.Add(time.Duration(offset) * time.Minute)
	return chat.Thread{ID: id, Title: title, CreatedAt: at, UpdatedAt: at}
}

// FakeBackend is an in-memory chat.Backend that records every call.
type FakeBackend struct {
	mu sync.Mutex

	Threads []chat.Thread
	Ack     chat.TriggerAck

	ListErr    error
	CreateErr  error
	InsertErr  error
	TriggerErr error

	calls []string
	subs  map[string]chan chat.FeedEvent
	seq   int
}

var _ chat.Backend = (*FakeBackend)(nil)

// NewFakeBackend returns a backend whose trigger succeeds.
func NewFakeBackend(threads ...chat.Thread) *FakeBackend {
	return &FakeBackend{
		Threads: threads,
		Ack:     chat.TriggerAck{Success: true},
		subs:    make(map[string]chan chat.FeedEvent),
	}
}

// Calls returns the recorded call log, e.g. "insert:c1:hello".
func (f *FakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *FakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

// ListThreads implements chat.ThreadStore.
func (f *FakeBackend) ListThreads(ctx context.Context) ([]chat.Thread, error) {
	f.record("list")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	return append([]chat.Thread(nil), f.Threads...), nil
}

// CreateThread implements chat.ThreadStore. New threads go to the front.
func (f *FakeBackend) CreateThread(ctx context.Context, title string) (chat.Thread, error) {
	f.record("create:" + title)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return chat.Thread{}, f.CreateErr
	}
	f.seq++
	th := Thread(fmt.Sprintf("new-%d", f.seq), title, 60+f.seq)
	f.Threads = append([]chat.Thread{th}, f.Threads...)
	return th, nil
}

// InsertMessage implements chat.MessageWriter.
func (f *FakeBackend) InsertMessage(ctx context.Context, threadID, content string) (chat.Message, error) {
	f.record("insert:" + threadID + ":" + content)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.InsertErr != nil {
		return chat.Message{}, f.InsertErr
	}
	f.seq++
	return Msg(threadID, fmt.Sprintf("m-%d", f.seq), chat.AuthorUser, content, f.seq), nil
}

// TriggerReply implements chat.ReplyTrigger.
func (f *FakeBackend) TriggerReply(ctx context.Context, threadID, content string) (chat.TriggerAck, error) {
	f.record("trigger:" + threadID + ":" + content)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TriggerErr != nil {
		return chat.TriggerAck{}, f.TriggerErr
	}
	return f.Ack, nil
}

// SubscribeMessages implements chat.MessageSubscriber. Events pushed with
// Emit are forwarded until ctx is cancelled.
func (f *FakeBackend) SubscribeMessages(ctx context.Context, threadID string) <-chan chat.FeedEvent {
	f.record("subscribe:" + threadID)
	in := f.feed(threadID)
	out := make(chan chat.FeedEvent)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-in:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Emit queues a snapshot for threadID's subscribers.
func (f *FakeBackend) Emit(threadID string, msgs ...chat.Message) {
	f.feed(threadID) <- chat.FeedEvent{ThreadID: threadID, Messages: msgs}
}

// EmitErr queues a subscription error for threadID.
func (f *FakeBackend) EmitErr(threadID string, err error, reconnecting bool) {
	f.feed(threadID) <- chat.FeedEvent{ThreadID: threadID, Err: err, Reconnecting: reconnecting}
}

func (f *FakeBackend) feed(threadID string) chan chat.FeedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.subs[threadID]
	if !ok {
		ch = make(chan chat.FeedEvent, 32)
		f.subs[threadID] = ch
	}
	return ch
}

// FakeAuth is an in-memory identity provider session.
type FakeAuth struct {
	mu sync.Mutex

	// Accounts maps email to password for SignIn.
	Accounts map[string]string
	SignUpErr error
	RestoreTo auth.Status

	status auth.Status
	user   auth.User
	calls  []string
}

// NewFakeAuth returns a FakeAuth that restores to Anonymous.
func NewFakeAuth() *FakeAuth {
	return &FakeAuth{
		Accounts:  map[string]string{},
		RestoreTo: auth.StatusAnonymous,
		status:    auth.StatusLoading,
	}
}

// Calls returns the recorded call log.
func (f *FakeAuth) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Restore resolves Loading to RestoreTo.
func (f *FakeAuth) Restore(ctx context.Context) (auth.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "restore")
	f.status = f.RestoreTo
	if f.status == auth.StatusAuthenticated && f.user.Email == "" {
		f.user = auth.User{ID: "u1", Email: "ada@example.com"}
	}
	return f.status, nil
}

// SignIn succeeds for known accounts and reports invalid credentials otherwise.
func (f *FakeAuth) SignIn(ctx context.Context, email, password string) (*auth.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "signin:"+email)
	if pw, ok := f.Accounts[email]; !ok || pw != password {
		return nil, &auth.Error{Status: 401, Code: "invalid-email-password", Message: "Incorrect email or password"}
	}
	f.status = auth.StatusAuthenticated
	f.user = auth.User{ID: "u1", Email: email}
	return &auth.Session{AccessToken: "tok", User: f.user}, nil
}

// SignUp records the account unless SignUpErr is set.
func (f *FakeAuth) SignUp(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "signup:"+email)
	if f.SignUpErr != nil {
		return f.SignUpErr
	}
	f.Accounts[email] = password
	return nil
}

// SignOut clears the session.
func (f *FakeAuth) SignOut(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "signout")
	f.status = auth.StatusAnonymous
	f.user = auth.User{}
	return nil
}

// Status returns the current status.
func (f *FakeAuth) Status() auth.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

// User returns the signed-in user.
func (f *FakeAuth) User() auth.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

// AccessToken returns a static token while signed in.
func (f *FakeAuth) AccessToken(ctx context.Context) (string, error) {
	if f.Status() != auth.StatusAuthenticated {
		return "", auth.ErrNotAuthenticated
	}
	return "tok", nil
}
