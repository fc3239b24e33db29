package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"viegrand/model"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// RoomID derives the deterministic chat room key for a pair of users. The
// sorted join makes it independent of argument order.
func RoomID(uidA, uidB string) string {
	pair := []string{uidA, uidB}
	sort.Strings(pair)
	return strings.Join(pair, "_")
}

// OtherParticipant returns the member of a RoomID-built key that is not
// the sender, or "" if the sender is not a participant.
func OtherParticipant(roomID, senderID string) string {
	parts := strings.SplitN(roomID, "_", 2)
	if len(parts) != 2 {
		return ""
	}
	switch senderID {
	case parts[0]:
		return parts[1]
	case parts[1]:
		return parts[0]
	}
	return ""
}

// EnsureChatRoom creates the pair's room if it is missing, else patches
// only the participant display names. The merge-upsert keyed by the
// sorted pair means repeated calls, in either order, never produce a
// second room. Safe to call on every app foreground.
func EnsureChatRoom(ctx context.Context, firestoreClient *firestore.Client, uidA, nameA, uidB, nameB string) (string, error) {
	roomID := RoomID(uidA, uidB)

	participants := []string{uidA, uidB}
	sort.Strings(participants)

	room := map[string]interface{}{
		"participants": participants,
		"participantData": map[string]interface{}{
			uidA: map[string]interface{}{"name": nameA},
			uidB: map[string]interface{}{"name": nameB},
		},
		"updatedAt": firestore.ServerTimestamp,
	}

	if _, err := firestoreClient.Collection("chats").Doc(roomID).Set(ctx, room, firestore.MergeAll); err != nil {
		return "", fmt.Errorf("while upserting chat room %s: %w", roomID, err)
	}
	return roomID, nil
}

// SendMessage stores the message, moves the room's lastMessage forward and
// leaves a chat notification record for the receiver. The record is what
// makes the receiver's device ring; the push itself is best-effort.
func SendMessage(ctx context.Context, firestoreClient *firestore.Client, roomID, senderID, senderName, text, msgType, imageURL string) (string, error) {
	if msgType == "" {
		msgType = "text"
	}

	msgID := uuid.New().String()
	msg := model.ChatMessage{
		MessageID: msgID,
		Text:      text,
		Image:     imageURL,
		Type:      msgType,
		SenderID:  senderID,
	}
	if _, err := firestoreClient.Collection("chats").Doc(roomID).Collection("messages").Doc(msgID).Set(ctx, msg); err != nil {
		return "", fmt.Errorf("while storing message: %w", err)
	}

	preview := text
	if msgType == "image" {
		preview = "📷 Sent a photo"
	}
	if _, err := firestoreClient.Collection("chats").Doc(roomID).Set(ctx, map[string]interface{}{
		"lastMessage": map[string]interface{}{
			"text":      preview,
			"createdAt": firestore.ServerTimestamp,
		},
	}, firestore.MergeAll); err != nil {
		return "", fmt.Errorf("while updating last message: %w", err)
	}

	if receiverID := OtherParticipant(roomID, senderID); receiverID != "" {
		rec := model.Notification{
			Title: senderName,
			Body:  preview,
			Type:  model.NotificationTypeChat,
		}
		if _, err := AddNotification(ctx, firestoreClient, receiverID, rec); err != nil {
			slog.Error("Failed to record chat notification", slog.String("receiver", receiverID), slog.Any("err", err))
		}
	}

	return msgID, nil
}
