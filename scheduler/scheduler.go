package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"viegrand/model"
	"viegrand/services"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/messaging"
	"github.com/robfig/cron/v3"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// sweepSpec fires once per day at 08:00 server time. Staleness is checked
// per day, not continuously, so an alert can lag up to ~24h past the true
// 48h threshold.
const sweepSpec = "0 8 * * *"

// ErrSweepInProgress is returned when a sweep tick arrives while the
// previous pass is still running.
var ErrSweepInProgress = errors.New("sweep already in progress")

// Directory reads users from the backing store.
type Directory interface {
	Elders(ctx context.Context) ([]model.User, error)
	User(ctx context.Context, uid string) (model.User, error)
}

// Pusher sends one push message to one device token.
type Pusher interface {
	Push(ctx context.Context, token, title, body string, data map[string]string) error
}

// Recorder appends a notification record to a user's collection.
type Recorder interface {
	Record(ctx context.Context, uid string, rec model.Notification) error
}

// Sweeper detects elders with no recent sign-in and alerts their linked
// relatives, by push and by durable notification record.
type Sweeper struct {
	directory  Directory
	pusher     Pusher
	recorder   Recorder
	staleAfter time.Duration

	now   func() time.Time
	sleep func(time.Duration)

	mu sync.Mutex
}

func NewSweeper(directory Directory, pusher Pusher, recorder Recorder) *Sweeper {
	return &Sweeper{
		directory:  directory,
		pusher:     pusher,
		recorder:   recorder,
		staleAfter: 48 * time.Hour,
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// StartScheduler wires the daily inactivity sweep and blocks running the
// cron loop. Started from the server as `go scheduler.StartScheduler(...)`.
func StartScheduler(firestoreClient *firestore.Client, messagingClient *messaging.Client) {
	sweeper := NewSweeper(
		&FirestoreDirectory{Client: firestoreClient},
		&FCMPusher{Client: messagingClient},
		&FirestoreRecorder{Client: firestoreClient},
	)

	c := cron.New()
	if _, err := c.AddFunc(sweepSpec, func() {
		if err := sweeper.Sweep(context.Background()); err != nil {
			slog.Error("Inactivity sweep failed", slog.Any("err", err))
		}
	}); err != nil {
		slog.Error("Failed to schedule inactivity sweep", slog.Any("err", err))
		return
	}

	slog.Info("Inactivity sweep scheduled", slog.String("spec", sweepSpec))
	c.Run()
}

// Sweep runs one full pass over all elders. A second call while a pass is
// still running returns ErrSweepInProgress instead of overlapping it.
// Failures for one elder, relative or token never stop the rest of the
// pass.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if !s.mu.TryLock() {
		return ErrSweepInProgress
	}
	defer s.mu.Unlock()

	slog.Info("Starting inactivity sweep")
	defer slog.Info("Finished inactivity sweep")

	elders, err := s.directory.Elders(ctx)
	if err != nil {
		return fmt.Errorf("while listing elders: %w", err)
	}
	if len(elders) == 0 {
		slog.Info("No elders registered")
		return nil
	}

	cutoff := s.now().Add(-s.staleAfter)
	for _, elder := range elders {
		// Stale means strictly older than the threshold; a sign-in at
		// exactly 48h ago does not alert.
		if !elder.LastLoginAt.IsZero() && !elder.LastLoginAt.Before(cutoff) {
			continue
		}
		s.alertRelatives(ctx, elder)
	}
	return nil
}

func (s *Sweeper) alertRelatives(ctx context.Context, elder model.User) {
	slog.Warn("Elder inactive for over 2 days", slog.String("uid", elder.UID), slog.String("name", elder.Name))

	if len(elder.FamilyMembers) == 0 {
		slog.Info("Elder has no linked relatives", slog.String("uid", elder.UID))
		return
	}

	title := "⚠️ Family alert"
	body := fmt.Sprintf("%s has not been active for over 2 days. Please check in!", elder.Name)
	data := map[string]string{
		"type":      model.NotificationTypeInactive,
		"elderId":   elder.UID,
		"elderName": elder.Name,
	}

	for _, relativeID := range elder.FamilyMembers {
		relative, err := s.directory.User(ctx, relativeID)
		if err != nil {
			slog.Error("Failed to load relative", slog.String("relative", relativeID), slog.Any("err", err))
			continue
		}

		for _, token := range relative.FcmTokens {
			if err := s.pushWithRetry(ctx, token, title, body, data); err != nil {
				slog.Error("Failed to push to token", slog.String("relative", relativeID), slog.Any("err", err))
			}
		}

		// The record is written regardless of tokens; a relative with no
		// registered device still sees the alert in the app.
		rec := model.Notification{
			Title:   title,
			Body:    body,
			Type:    model.NotificationTypeInactive,
			ElderID: elder.UID,
		}
		if err := s.recorder.Record(ctx, relativeID, rec); err != nil {
			slog.Error("Failed to record inactivity notice", slog.String("relative", relativeID), slog.Any("err", err))
		}
	}
}

// The sweep runs once a day, so a transient send failure gets a short
// bounded retry instead of waiting for tomorrow's pass.
const pushAttempts = 3

func (s *Sweeper) pushWithRetry(ctx context.Context, token, title, body string, data map[string]string) error {
	var err error
	for attempt := 1; attempt <= pushAttempts; attempt++ {
		if err = s.pusher.Push(ctx, token, title, body, data); err == nil {
			return nil
		}
		if attempt < pushAttempts {
			s.sleep(time.Duration(attempt) * time.Second)
		}
	}
	return err
}

// FirestoreDirectory implements Directory over the users collection.
type FirestoreDirectory struct {
	Client *firestore.Client
}

func (d *FirestoreDirectory) Elders(ctx context.Context) ([]model.User, error) {
	iter := d.Client.Collection("users").Where("role", "==", "elder").Documents(ctx)
	defer iter.Stop()

	var elders []model.User
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while iterating elders: %w", err)
		}

		var user model.User
		if err := doc.DataTo(&user); err != nil {
			return nil, fmt.Errorf("while parsing elder %s: %w", doc.Ref.ID, err)
		}
		if user.UID == "" {
			user.UID = doc.Ref.ID
		}
		elders = append(elders, user)
	}
	return elders, nil
}

func (d *FirestoreDirectory) User(ctx context.Context, uid string) (model.User, error) {
	snap, err := d.Client.Collection("users").Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return model.User{}, services.ErrUserNotFound
		}
		return model.User{}, err
	}

	var user model.User
	if err := snap.DataTo(&user); err != nil {
		return model.User{}, fmt.Errorf("while parsing user %s: %w", uid, err)
	}
	if user.UID == "" {
		user.UID = snap.Ref.ID
	}
	return user, nil
}

// FCMPusher implements Pusher over Cloud Messaging.
type FCMPusher struct {
	Client *messaging.Client
}

func (p *FCMPusher) Push(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := p.Client.Send(ctx, &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	})
	return err
}

// FirestoreRecorder implements Recorder over users/{uid}/notifications.
type FirestoreRecorder struct {
	Client *firestore.Client
}

func (r *FirestoreRecorder) Record(ctx context.Context, uid string, rec model.Notification) error {
	_, err := services.AddNotification(ctx, r.Client, uid, rec)
	return err
}
