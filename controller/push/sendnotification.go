package push

import (
	"context"
	"net/http"

	"viegrand/dto"
	"viegrand/model"

	"cloud.google.com/go/firestore"
	"firebase.google.com/go/messaging"
	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func SendNotificationController(router *gin.Engine, firestoreClient *firestore.Client, messagingClient *messaging.Client) {
	router.POST("/send-notification", func(c *gin.Context) {
		SendNotification(c, firestoreClient, messagingClient)
	})
}

// SendNotification relays one push to the target user's registered device.
// Push is best-effort: the in-app notification record is the source of
// truth, so a user without a token still counts as success.
func SendNotification(c *gin.Context, firestoreClient *firestore.Client, messagingClient *messaging.Client) {
	var request dto.SendNotificationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctx := context.Background()
	snap, err := firestoreClient.Collection("users").Doc(request.UserID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := snap.DataTo(&user); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse user data"})
		return
	}

	if user.PushToken == "" {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	_, err = messagingClient.Send(ctx, &messaging.Message{
		Token: user.PushToken,
		Notification: &messaging.Notification{
			Title: request.Title,
			Body:  request.Body,
		},
		Data: request.Data,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
