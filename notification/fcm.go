package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"viegrand/model"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/messaging"
)

// FCMNotifier delivers display notifications through Cloud Messaging,
// fanning out over the recipient's registered device tokens.
type FCMNotifier struct {
	Messaging *messaging.Client
	Users     *firestore.Client
}

func (n *FCMNotifier) Notify(uid, title, body string) error {
	ctx := context.Background()

	snap, err := n.Users.Collection("users").Doc(uid).Get(ctx)
	if err != nil {
		return fmt.Errorf("while loading user %s: %w", uid, err)
	}
	var user model.User
	if err := snap.DataTo(&user); err != nil {
		return fmt.Errorf("while parsing user %s: %w", uid, err)
	}

	// Push is best-effort: a user with no registered device simply keeps
	// the in-app record.
	for _, token := range user.FcmTokens {
		_, err := n.Messaging.Send(ctx, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
		})
		if err != nil {
			// One bad token must not abort the others.
			slog.Error("Failed to push to token", slog.String("uid", uid), slog.Any("err", err))
		}
	}
	return nil
}

// FCMBadgeSink mirrors the unread count to the device as a data-only
// message the app applies to its OS badge.
type FCMBadgeSink struct {
	Messaging *messaging.Client
	Users     *firestore.Client
}

func (s *FCMBadgeSink) SetBadge(uid string, count int) error {
	ctx := context.Background()

	snap, err := s.Users.Collection("users").Doc(uid).Get(ctx)
	if err != nil {
		return fmt.Errorf("while loading user %s: %w", uid, err)
	}
	var user model.User
	if err := snap.DataTo(&user); err != nil {
		return fmt.Errorf("while parsing user %s: %w", uid, err)
	}
	if user.PushToken == "" {
		return nil
	}

	_, err = s.Messaging.Send(ctx, &messaging.Message{
		Token: user.PushToken,
		Data: map[string]string{
			"type":  "badge",
			"count": strconv.Itoa(count),
		},
	})
	if err != nil {
		return fmt.Errorf("while mirroring badge for %s: %w", uid, err)
	}
	return nil
}
