package model

import "time"

const (
	ReminderKindPill     = "pill"
	ReminderKindWater    = "water"
	ReminderKindExercise = "exercise"
	ReminderKindOther    = "other"
)

type Reminder struct {
	ReminderID string `firestore:"reminderid,omitempty"`
	Title      string `firestore:"title,omitempty"`
	Content    string `firestore:"content,omitempty"`
	Date       string `firestore:"date,omitempty"` // DD/MM/YYYY
	Time       string `firestore:"time,omitempty"` // HH:MM
	Type       string `firestore:"type,omitempty"` // pill | water | exercise | other

	// IsDone only ever moves from false to true.
	IsDone bool `firestore:"isDone"`

	CreatedBy string    `firestore:"createdBy,omitempty"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}
