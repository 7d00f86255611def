package chat

import (
	"sort"

	"github.com/samber/lo"
)

// Feed is the client's view of one thread's messages. It only ever grows:
// snapshots from the subscription are merged by ID, and render order comes
// from CreatedAt rather than from the order notifications arrive in.
type Feed struct {
	threadID string
	byID     map[string]Message
	ordered  []Message
	synced   bool
}

// NewFeed creates an empty feed for threadID.
func NewFeed(threadID string) *Feed {
	return &Feed{
		threadID: threadID,
		byID:     make(map[string]Message),
	}
}

// ThreadID returns the thread this feed tracks.
func (f *Feed) ThreadID() string {
	return f.threadID
}

// Apply merges a snapshot into the feed and reports whether anything new
// was added. Messages belonging to other threads are ignored. Known IDs are
// never overwritten since messages are immutable once created.
func (f *Feed) Apply(snapshot []Message) bool {
	f.synced = true
	added := false
	for _, m := range snapshot {
		if m.ThreadID != "" && m.ThreadID != f.threadID {
			continue
		}
		if _, ok := f.byID[m.ID]; ok {
			continue
		}
		if m.ThreadID == "" {
			m.ThreadID = f.threadID
		}
		f.byID[m.ID] = m
		added = true
	}
	if !added {
		return false
	}

	f.ordered = lo.Values(f.byID)
	sort.SliceStable(f.ordered, func(i, j int) bool {
		a, b := f.ordered[i], f.ordered[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return true
}

// Synced reports whether at least one snapshot has been applied. Until then
// the bot reply count is unknown.
func (f *Feed) Synced() bool {
	return f.synced
}

// Messages returns the feed in creation order. The slice must not be modified.
func (f *Feed) Messages() []Message {
	return f.ordered
}

// Len returns the number of known messages.
func (f *Feed) Len() int {
	return len(f.ordered)
}

// BotCount returns how many bot-authored messages the feed holds.
func (f *Feed) BotCount() int {
	return lo.CountBy(f.ordered, func(m Message) bool { return m.IsBot() })
}

// LatestBot returns the newest bot message, if any.
func (f *Feed) LatestBot() (Message, bool) {
	m, _, ok := lo.FindLastIndexOf(f.ordered, func(m Message) bool { return m.IsBot() })
	return m, ok
}
