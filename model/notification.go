package model

import "time"

const (
	NotificationTypeChat     = "chat"
	NotificationTypeReminder = "reminder"
	NotificationTypeInactive = "elderly_inactive"
)

type Notification struct {
	NotificationID string `firestore:"notificationid,omitempty"`
	Title          string `firestore:"title,omitempty"`
	Body           string `firestore:"body,omitempty"`
	Type           string `firestore:"type,omitempty"` // chat | reminder | elderly_inactive

	// IsRead only ever moves from false to true.
	IsRead bool `firestore:"isRead"`

	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`

	// Reminder-typed records carry the fields the feed watcher needs to
	// schedule the device alert.
	ReminderID   string `firestore:"reminderId,omitempty"`
	ReminderKind string `firestore:"reminderKind,omitempty"`
	Date         string `firestore:"date,omitempty"`
	Time         string `firestore:"time,omitempty"`
	IsDone       bool   `firestore:"isDone,omitempty"`

	// Inactivity alerts reference the elder they concern.
	ElderID string `firestore:"elderId,omitempty"`
}
