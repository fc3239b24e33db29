package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"viegrand/model"
)

// fakeSource feeds hand-built change batches and unread counts into a
// session the way the live snapshot listeners would.
type fakeSource struct {
	batches chan []Change
	unread  chan int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		batches: make(chan []Change),
		unread:  make(chan int),
	}
}

func (f *fakeSource) Listen(ctx context.Context, uid string, since time.Time, fn func([]Change)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-f.batches:
			fn(batch)
		}
	}
}

func (f *fakeSource) ListenUnread(ctx context.Context, uid string, fn func(int)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case count := <-f.unread:
			fn(count)
		}
	}
}

func (f *fakeSource) send(t *testing.T, batch []Change) {
	t.Helper()
	select {
	case f.batches <- batch:
	case <-time.After(2 * time.Second):
		t.Fatal("no listener consumed the batch")
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func newTestSession(notifier *recordingNotifier) (*Session, *fakeSource, *Registry, *BadgeCounter) {
	source := newFakeSource()
	alarms := NewRegistry(notifier)
	badge := NewBadgeCounter(nil)
	return NewSession("u1", source, alarms, notifier, badge), source, alarms, badge
}

func TestSessionDispatchChat(t *testing.T) {
	notifier := newRecordingNotifier()
	session, source, alarms, _ := newTestSession(notifier)
	defer alarms.Stop()

	session.Attach(context.Background())
	defer session.Detach()

	source.send(t, []Change{{
		Kind: ChangeAdded,
		ID:   "n1",
		Record: model.Notification{
			Title: "Alice",
			Body:  "See you at lunch",
			Type:  model.NotificationTypeChat,
		},
	}})

	select {
	case <-notifier.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("chat record did not produce a notification")
	}

	notifier.mu.Lock()
	call := notifier.calls[0]
	notifier.mu.Unlock()
	if call != "u1|Alice|See you at lunch" {
		t.Errorf("Notify called with %q", call)
	}
}

func TestSessionDispatchReminder(t *testing.T) {
	notifier := newRecordingNotifier()
	session, source, alarms, _ := newTestSession(notifier)
	defer alarms.Stop()

	session.Attach(context.Background())
	defer session.Detach()

	source.send(t, []Change{{
		Kind: ChangeAdded,
		ID:   "n1",
		Record: model.Notification{
			Title:        "Morning pills",
			Body:         "two tablets at 08:00",
			Type:         model.NotificationTypeReminder,
			ReminderID:   "rem-1",
			ReminderKind: "pill",
			Date:         "01/01/2100",
			Time:         "08:00",
		},
	}})

	waitFor(t, func() bool {
		pending := alarms.Pending()
		return len(pending) == 1 && pending[0] == "rem-1"
	}, "reminder alert was not scheduled")

	if notifier.count() != 0 {
		t.Error("reminder record fired an immediate notification")
	}
}

func TestSessionSkipsDoneAndNonAdded(t *testing.T) {
	notifier := newRecordingNotifier()
	session, source, alarms, _ := newTestSession(notifier)
	defer alarms.Stop()

	session.Attach(context.Background())
	defer session.Detach()

	source.send(t, []Change{
		{
			Kind: ChangeAdded,
			ID:   "n1",
			Record: model.Notification{
				Title:        "Old pills",
				Type:         model.NotificationTypeReminder,
				ReminderID:   "rem-done",
				ReminderKind: "pill",
				Date:         "01/01/2100",
				Time:         "08:00",
				IsDone:       true,
			},
		},
		{
			Kind: ChangeModified,
			ID:   "n2",
			Record: model.Notification{
				Title: "Alice",
				Body:  "edited",
				Type:  model.NotificationTypeChat,
			},
		},
	})

	// A sentinel added record flushes the dispatch goroutine; batches are
	// handled in order.
	source.send(t, []Change{{
		Kind:   ChangeAdded,
		ID:     "n3",
		Record: model.Notification{Title: "Bob", Body: "hi", Type: model.NotificationTypeChat},
	}})
	select {
	case <-notifier.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("sentinel record did not produce a notification")
	}

	if got := alarms.Pending(); len(got) != 0 {
		t.Errorf("done reminder was scheduled: %v", got)
	}
	if got := notifier.count(); got != 1 {
		t.Errorf("Notify called %d times, want 1 (sentinel only)", got)
	}
}

func TestSessionReminderFallsBackToChangeID(t *testing.T) {
	notifier := newRecordingNotifier()
	session, source, alarms, _ := newTestSession(notifier)
	defer alarms.Stop()

	session.Attach(context.Background())
	defer session.Detach()

	source.send(t, []Change{{
		Kind: ChangeAdded,
		ID:   "doc-7",
		Record: model.Notification{
			Title:        "Water",
			Type:         model.NotificationTypeReminder,
			ReminderKind: "water",
			Date:         "01/01/2100",
			Time:         "09:00",
		},
	}})

	waitFor(t, func() bool {
		pending := alarms.Pending()
		return len(pending) == 1 && pending[0] == "doc-7"
	}, "alert was not keyed by the document id")
}

func TestSessionBadgeFeed(t *testing.T) {
	notifier := newRecordingNotifier()
	session, source, alarms, badge := newTestSession(notifier)
	defer alarms.Stop()

	session.Attach(context.Background())
	defer session.Detach()

	select {
	case source.unread <- 4:
	case <-time.After(2 * time.Second):
		t.Fatal("no listener consumed the unread count")
	}

	waitFor(t, func() bool { return badge.Count("u1") == 4 }, "badge count was not mirrored")
}

func TestSessionDetachStopsDispatch(t *testing.T) {
	notifier := newRecordingNotifier()
	session, source, alarms, _ := newTestSession(notifier)
	defer alarms.Stop()

	session.Attach(context.Background())
	session.Detach()

	select {
	case source.batches <- []Change{{
		Kind:   ChangeAdded,
		Record: model.Notification{Title: "x", Type: model.NotificationTypeChat},
	}}:
		t.Fatal("detached session still consumed a batch")
	case <-time.After(50 * time.Millisecond):
	}

	// Detach is safe to call again.
	session.Detach()
}

func TestManagerSignInReplacesSession(t *testing.T) {
	notifier := newRecordingNotifier()
	source := newFakeSource()
	alarms := NewRegistry(notifier)
	defer alarms.Stop()
	m := NewManager(source, alarms, notifier, NewBadgeCounter(nil))

	m.SignIn(context.Background(), "u1")
	m.SignIn(context.Background(), "u1")

	source.send(t, []Change{{
		Kind:   ChangeAdded,
		Record: model.Notification{Title: "Alice", Body: "hi", Type: model.NotificationTypeChat},
	}})
	select {
	case <-notifier.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement session did not dispatch")
	}
	if got := notifier.count(); got != 1 {
		t.Errorf("Notify called %d times, want 1 (old session must be detached)", got)
	}

	m.SignOut("u1")
	m.SignOut("u1")

	select {
	case source.batches <- []Change{{
		Kind:   ChangeAdded,
		Record: model.Notification{Title: "x", Type: model.NotificationTypeChat},
	}}:
		t.Fatal("signed-out session still consumed a batch")
	case <-time.After(50 * time.Millisecond):
	}
}

// Two devices signing in to one account race SignIn; whichever session
// ends up stored, sign-out must leave no attached listener behind.
func TestManagerConcurrentSignIn(t *testing.T) {
	for i := 0; i < 25; i++ {
		notifier := newRecordingNotifier()
		source := newFakeSource()
		alarms := NewRegistry(notifier)
		m := NewManager(source, alarms, notifier, NewBadgeCounter(nil))

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m.SignIn(context.Background(), "u1")
			}()
		}
		wg.Wait()
		m.SignOut("u1")

		select {
		case source.batches <- []Change{{
			Kind:   ChangeAdded,
			Record: model.Notification{Title: "x", Type: model.NotificationTypeChat},
		}}:
			t.Fatalf("iteration %d: a session consumed a batch after sign-out", i)
		case <-time.After(20 * time.Millisecond):
		}
		alarms.Stop()
	}
}
