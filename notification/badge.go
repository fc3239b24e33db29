package notification

import (
	"log/slog"
	"strconv"
	"sync"
)

// BadgeSink mirrors an unread count to a user's OS application badge.
type BadgeSink interface {
	SetBadge(uid string, count int) error
}

// BadgeCounter holds the derived unread count per user and pushes every
// change to the sink. It has no storage of its own; the live subscription
// in the feed watcher recomputes the count from the backing store.
type BadgeCounter struct {
	sink BadgeSink

	mu     sync.Mutex
	counts map[string]int
}

func NewBadgeCounter(sink BadgeSink) *BadgeCounter {
	return &BadgeCounter{sink: sink, counts: make(map[string]int)}
}

func (b *BadgeCounter) Set(uid string, count int) {
	b.mu.Lock()
	b.counts[uid] = count
	b.mu.Unlock()

	if b.sink == nil {
		return
	}
	if err := b.sink.SetBadge(uid, count); err != nil {
		slog.Error("Failed to mirror badge count", slog.String("uid", uid), slog.Any("err", err))
	}
}

// Count returns the exact unread count last seen for a user.
func (b *BadgeCounter) Count(uid string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.counts[uid]
}

// BadgeLabel renders a count for display. The label caps at "9+"; the
// underlying count stays exact.
func BadgeLabel(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 9:
		return "9+"
	default:
		return strconv.Itoa(count)
	}
}
