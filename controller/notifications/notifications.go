package notifications

import (
	"context"
	"net/http"

	"viegrand/middleware"
	"viegrand/model"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func NotificationController(router *gin.Engine, firestoreClient *firestore.Client) {
	routes := router.Group("/notifications", middleware.AccessTokenMiddleware())
	{
		routes.GET("", func(c *gin.Context) {
			ListNotifications(c, firestoreClient)
		})
		routes.PUT("/:id/read", func(c *gin.Context) {
			MarkRead(c, firestoreClient)
		})
		routes.PUT("/read-all", func(c *gin.Context) {
			MarkAllRead(c, firestoreClient)
		})
	}
}

func ListNotifications(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	ctx := context.Background()
	iter := firestoreClient.Collection("users").Doc(userId).Collection("notifications").
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	records := []model.Notification{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var rec model.Notification
		if err := doc.DataTo(&rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse notification data"})
			return
		}
		if rec.NotificationID == "" {
			rec.NotificationID = doc.Ref.ID
		}
		records = append(records, rec)
	}

	c.JSON(http.StatusOK, records)
}

// MarkRead flips one record's isRead to true; the unread subscription
// picks the change up and the badge count follows.
func MarkRead(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)
	notifId := c.Param("id")

	ctx := context.Background()
	ref := firestoreClient.Collection("users").Doc(userId).Collection("notifications").Doc(notifId)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "isRead", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead drives the unread count, and with it the badge, to zero.
func MarkAllRead(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	ctx := context.Background()
	iter := firestoreClient.Collection("users").Doc(userId).Collection("notifications").
		Where("isRead", "==", false).
		Documents(ctx)
	defer iter.Stop()

	writer := firestoreClient.BulkWriter(ctx)
	updated := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if _, err := writer.Update(doc.Ref, []firestore.Update{
			{Path: "isRead", Value: true},
		}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
			return
		}
		updated++
	}
	writer.End()

	c.JSON(http.StatusOK, gin.H{
		"message": "All notifications marked as read",
		"updated": updated,
	})
}
