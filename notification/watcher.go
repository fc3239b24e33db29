package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"viegrand/model"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ChangeKind classifies one document change within a snapshot batch.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

type Change struct {
	Kind   ChangeKind
	ID     string
	Record model.Notification
}

// Source is a live feed over one user's notification records.
type Source interface {
	// Listen streams change batches for records created at or after since,
	// newest first, until ctx is cancelled.
	Listen(ctx context.Context, uid string, since time.Time, fn func([]Change)) error
	// ListenUnread streams the current count of unread records.
	ListenUnread(ctx context.Context, uid string, fn func(int)) error
}

// Session owns the two standing subscriptions of one signed-in user: the
// dispatch feed anchored at the sign-in instant, and the unread counter.
// Anchoring at sign-in keeps pre-existing unread records from re-firing
// alerts every time the app opens.
type Session struct {
	uid       string
	startedAt time.Time

	source   Source
	alarms   *Registry
	notifier Notifier
	badge    *BadgeCounter

	cancel context.CancelFunc
	done   sync.WaitGroup
}

func NewSession(uid string, source Source, alarms *Registry, notifier Notifier, badge *BadgeCounter) *Session {
	return &Session{
		uid:       uid,
		startedAt: time.Now(),
		source:    source,
		alarms:    alarms,
		notifier:  notifier,
		badge:     badge,
	}
}

// Attach opens both subscriptions.
func (s *Session) Attach(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.done.Add(2)
	go func() {
		defer s.done.Done()
		if err := s.source.Listen(ctx, s.uid, s.startedAt, s.dispatch); err != nil && ctx.Err() == nil {
			slog.Error("Notification feed ended", slog.String("uid", s.uid), slog.Any("err", err))
		}
	}()
	go func() {
		defer s.done.Done()
		if err := s.source.ListenUnread(ctx, s.uid, func(count int) {
			s.badge.Set(s.uid, count)
		}); err != nil && ctx.Err() == nil {
			slog.Error("Unread count feed ended", slog.String("uid", s.uid), slog.Any("err", err))
		}
	}()
}

// Detach tears both subscriptions down unconditionally and waits for the
// listeners to stop. No dispatch happens after it returns.
func (s *Session) Detach() {
	if s.cancel != nil {
		s.cancel()
	}
	s.done.Wait()
}

// dispatch routes the newly-added records of one snapshot batch. Dispatch
// order follows the batch's change order; across batches the ordering is
// only as good as snapshot delivery, which is accepted.
func (s *Session) dispatch(changes []Change) {
	for _, ch := range changes {
		if ch.Kind != ChangeAdded {
			continue
		}
		rec := ch.Record

		switch rec.Type {
		case model.NotificationTypeReminder:
			if rec.IsDone {
				continue
			}
			reminderID := rec.ReminderID
			if reminderID == "" {
				reminderID = ch.ID
			}
			err := s.alarms.Schedule(s.uid, reminderID, rec.Title, rec.Body, rec.Date, rec.Time, rec.ReminderKind)
			if err != nil {
				if errors.Is(err, ErrNotificationsDisabled) {
					slog.Warn("Cannot schedule reminder alert", slog.String("uid", s.uid), slog.String("reminder", reminderID))
					continue
				}
				slog.Error("Failed to schedule reminder alert", slog.String("reminder", reminderID), slog.Any("err", err))
			}
		default:
			// Chat and inactivity notices need no future trigger.
			s.notifyNow(rec.Title, rec.Body)
		}
	}
}

func (s *Session) notifyNow(title, body string) {
	if s.notifier == nil {
		slog.Warn("Cannot deliver notification", slog.String("uid", s.uid))
		return
	}
	if err := s.notifier.Notify(s.uid, title, body); err != nil {
		slog.Error("Failed to deliver notification", slog.String("uid", s.uid), slog.Any("err", err))
	}
}

// Manager tracks the active session per signed-in user.
type Manager struct {
	source   Source
	alarms   *Registry
	notifier Notifier
	badge    *BadgeCounter

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(source Source, alarms *Registry, notifier Notifier, badge *BadgeCounter) *Manager {
	return &Manager{
		source:   source,
		alarms:   alarms,
		notifier: notifier,
		badge:    badge,
		sessions: make(map[string]*Session),
	}
}

// SignIn attaches a fresh session for the user, replacing any previous
// one. The whole swap happens under the lock so two concurrent sign-ins
// for the same uid cannot both store a session and orphan one of them;
// the session goroutines never take this lock, so detaching inline is
// safe.
func (m *Manager) SignIn(ctx context.Context, uid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old := m.sessions[uid]; old != nil {
		delete(m.sessions, uid)
		old.Detach()
	}

	session := NewSession(uid, m.source, m.alarms, m.notifier, m.badge)
	session.Attach(ctx)
	m.sessions[uid] = session
}

// SignOut detaches and drops the user's session, if any.
func (m *Manager) SignOut(uid string) {
	m.mu.Lock()
	session := m.sessions[uid]
	delete(m.sessions, uid)
	m.mu.Unlock()
	if session != nil {
		session.Detach()
	}
}

// FirestoreSource implements Source over users/{uid}/notifications.
type FirestoreSource struct {
	Client *firestore.Client
}

func (f *FirestoreSource) Listen(ctx context.Context, uid string, since time.Time, fn func([]Change)) error {
	query := f.Client.Collection("users").Doc(uid).Collection("notifications").
		Where("createdAt", ">=", since).
		OrderBy("createdAt", firestore.Desc)

	snaps := query.Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("while reading notification snapshot: %w", err)
		}

		batch := make([]Change, 0, len(snap.Changes))
		for _, dc := range snap.Changes {
			var rec model.Notification
			if err := dc.Doc.DataTo(&rec); err != nil {
				slog.Error("Failed to parse notification record", slog.String("doc", dc.Doc.Ref.ID), slog.Any("err", err))
				continue
			}
			batch = append(batch, Change{Kind: changeKind(dc.Kind), ID: dc.Doc.Ref.ID, Record: rec})
		}
		fn(batch)
	}
}

func (f *FirestoreSource) ListenUnread(ctx context.Context, uid string, fn func(int)) error {
	query := f.Client.Collection("users").Doc(uid).Collection("notifications").
		Where("isRead", "==", false)

	snaps := query.Snapshots(ctx)
	defer snaps.Stop()
	for {
		snap, err := snaps.Next()
		if err != nil {
			if status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("while reading unread snapshot: %w", err)
		}
		fn(snap.Size)
	}
}

func changeKind(kind firestore.DocumentChangeKind) ChangeKind {
	switch kind {
	case firestore.DocumentAdded:
		return ChangeAdded
	case firestore.DocumentModified:
		return ChangeModified
	default:
		return ChangeRemoved
	}
}
