package model

import "time"

type User struct {
	UID      string `firestore:"uid,omitempty"`
	Name     string `firestore:"name,omitempty"`
	Email    string `firestore:"email,omitempty"`
	Password string `firestore:"password,omitempty"`
	Role     string `firestore:"role,omitempty"` // "elder" or "relative"

	// PrivateKey is the pairing code another family member scans or types
	// to link the two accounts.
	PrivateKey string `firestore:"privateKey,omitempty"`

	// FamilyMembers holds linked uids. The link is bidirectional: if A
	// lists B, B lists A.
	FamilyMembers []string `firestore:"familyMembers,omitempty"`

	// FcmTokens is the deduplicated set of device push tokens; PushToken
	// is the most recently registered one, used by the relay endpoint.
	FcmTokens []string `firestore:"fcmTokens,omitempty"`
	PushToken string   `firestore:"pushToken,omitempty"`

	LastLoginAt time.Time `firestore:"lastLoginAt,omitempty"`
	CreatedAt   time.Time `firestore:"createdAt,omitempty"`
}
