package services

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var ErrUserNotFound = errors.New("user not found")

func UserExist(ctx context.Context, firestoreClient *firestore.Client, email string) (bool, error) {
	usersCollection := firestoreClient.Collection("users")
	query := usersCollection.Where("email", "==", email).Limit(1)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return false, err
	}
	return len(docs) > 0, nil
}

func GetUserByEmail(ctx context.Context, firestoreClient *firestore.Client, email string) (*firestore.DocumentSnapshot, error) {
	usersCollection := firestoreClient.Collection("users")

	query := usersCollection.Where("email", "==", email).Limit(1)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return docs[0], nil
}

func GetUserByID(ctx context.Context, firestoreClient *firestore.Client, uid string) (*firestore.DocumentSnapshot, error) {
	snap, err := firestoreClient.Collection("users").Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return snap, nil
}

func GetUserByPrivateKey(ctx context.Context, firestoreClient *firestore.Client, privateKey string) (*firestore.DocumentSnapshot, error) {
	usersCollection := firestoreClient.Collection("users")

	query := usersCollection.Where("privateKey", "==", privateKey).Limit(1)
	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	return docs[0], nil
}

// TouchLastLogin stamps the activity marker the inactivity sweep compares
// against. Called on every auth event and app foreground.
func TouchLastLogin(ctx context.Context, firestoreClient *firestore.Client, uid string) error {
	_, err := firestoreClient.Collection("users").Doc(uid).Set(ctx, map[string]interface{}{
		"lastLoginAt": firestore.ServerTimestamp,
	}, firestore.MergeAll)
	return err
}

// RegisterPushToken stores a device token, deduplicated via ArrayUnion,
// and refreshes the activity marker. The most recent token also becomes
// the single pushToken field the relay endpoint reads.
func RegisterPushToken(ctx context.Context, firestoreClient *firestore.Client, uid, token string) error {
	_, err := firestoreClient.Collection("users").Doc(uid).Update(ctx, []firestore.Update{
		{Path: "fcmTokens", Value: firestore.ArrayUnion(token)},
		{Path: "pushToken", Value: token},
		{Path: "lastLoginAt", Value: firestore.ServerTimestamp},
	})
	if status.Code(err) == codes.NotFound {
		return ErrUserNotFound
	}
	return err
}

// LinkFamilyMembers adds each uid to the other's familyMembers list inside
// one transaction, so a partial failure cannot leave a one-sided link.
func LinkFamilyMembers(ctx context.Context, firestoreClient *firestore.Client, uidA, uidB string) error {
	refA := firestoreClient.Collection("users").Doc(uidA)
	refB := firestoreClient.Collection("users").Doc(uidB)

	return firestoreClient.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(refA); err != nil {
			return ErrUserNotFound
		}
		if _, err := tx.Get(refB); err != nil {
			return ErrUserNotFound
		}
		if err := tx.Update(refA, []firestore.Update{
			{Path: "familyMembers", Value: firestore.ArrayUnion(uidB)},
		}); err != nil {
			return err
		}
		return tx.Update(refB, []firestore.Update{
			{Path: "familyMembers", Value: firestore.ArrayUnion(uidA)},
		})
	})
}
