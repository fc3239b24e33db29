package notification

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"viegrand/services"
)

// ErrNotificationsDisabled is returned when no delivery sink is attached,
// the equivalent of the device notification permission being denied. The
// caller surfaces it once and does not retry.
var ErrNotificationsDisabled = errors.New("notification delivery is disabled")

// Notifier delivers one display notification to a user's device.
type Notifier interface {
	Notify(uid, title, body string) error
}

// TitlePrefix tags the alert title by reminder kind so the user can triage
// without opening the app.
func TitlePrefix(kind string) string {
	switch kind {
	case "pill":
		return "💊 Time to take your medicine"
	case "water":
		return "💧 Time to drink water"
	case "exercise":
		return "🏃 Time to exercise"
	default:
		return "⏰ Reminder"
	}
}

// Registry schedules one-shot reminder alerts keyed by reminder id.
// A second Schedule call with the same id replaces the pending alert
// instead of duplicating it; the whole pipeline leans on that guarantee
// when the feed listener fires twice for the same document.
type Registry struct {
	notifier Notifier
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewRegistry(notifier Notifier) *Registry {
	return &Registry{
		notifier: notifier,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule registers the device alert for one reminder. A trigger that is
// not strictly in the future is ignored without error; the feed watcher
// only hands over reminders it still considers live.
func (r *Registry) Schedule(uid, reminderID, title, content, dateStr, timeStr, kind string) error {
	if r.notifier == nil {
		return ErrNotificationsDisabled
	}

	trigger, err := services.ComposeTrigger(dateStr, timeStr)
	if err != nil {
		if errors.Is(err, services.ErrPastTrigger) {
			return nil
		}
		return fmt.Errorf("while composing trigger for reminder %s: %w", reminderID, err)
	}

	displayTitle := fmt.Sprintf("%s: %s", TitlePrefix(kind), title)
	body := fmt.Sprintf("Content: %s", content)

	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[reminderID]; ok {
		t.Stop()
	}
	// The callback clears only its own entry. Stop returns false once the
	// timer has fired, so a replacement scheduled at that moment must not
	// lose its registration to the old callback's cleanup. The callback
	// cannot observe t before it is assigned: it blocks on the mutex held
	// here until after the map store.
	var t *time.Timer
	t = time.AfterFunc(trigger.Sub(r.now()), func() {
		r.mu.Lock()
		if r.timers[reminderID] == t {
			delete(r.timers, reminderID)
		}
		r.mu.Unlock()

		if err := r.notifier.Notify(uid, displayTitle, body); err != nil {
			// An OS-level delivery error is logged, never fatal.
			slog.Error("Failed to deliver reminder alert", slog.String("reminder", reminderID), slog.Any("err", err))
		}
	})
	r.timers[reminderID] = t
	return nil
}

// Cancel drops the pending alert for a reminder, if any.
func (r *Registry) Cancel(reminderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[reminderID]; ok {
		t.Stop()
		delete(r.timers, reminderID)
	}
}

// Pending lists the reminder ids with an alert still scheduled, sorted.
func (r *Registry) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.timers))
	for id := range r.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Stop cancels every pending alert.
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.timers {
		t.Stop()
		delete(r.timers, id)
	}
}
