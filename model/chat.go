package model

import "time"

type ChatRoom struct {
	// Participants holds exactly the two linked uids, sorted so the room
	// document is identical regardless of who created it.
	Participants    []string                   `firestore:"participants,omitempty"`
	ParticipantData map[string]ParticipantInfo `firestore:"participantData,omitempty"`
	LastMessage     *LastMessage               `firestore:"lastMessage,omitempty"`
	UpdatedAt       time.Time                  `firestore:"updatedAt,omitempty"`
}

type ParticipantInfo struct {
	Name string `firestore:"name,omitempty"`
}

type LastMessage struct {
	Text      string    `firestore:"text,omitempty"`
	CreatedAt time.Time `firestore:"createdAt,omitempty"`
}

type ChatMessage struct {
	MessageID string    `firestore:"messageid,omitempty"`
	Text      string    `firestore:"text,omitempty"`
	Image     string    `firestore:"image,omitempty"`
	Type      string    `firestore:"type,omitempty"` // text | image
	SenderID  string    `firestore:"senderId,omitempty"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}
