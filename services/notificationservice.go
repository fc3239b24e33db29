package services

import (
	"context"

	"viegrand/model"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// AddNotification appends one record to the recipient's notification
// collection. The record's createdAt is stamped server-side so the feed
// watcher's session cutoff compares against a single clock.
func AddNotification(ctx context.Context, firestoreClient *firestore.Client, uid string, rec model.Notification) (string, error) {
	id := uuid.New().String()
	rec.NotificationID = id
	rec.IsRead = false

	_, err := firestoreClient.Collection("users").Doc(uid).Collection("notifications").Doc(id).Set(ctx, rec)
	if err != nil {
		return "", err
	}
	return id, nil
}
