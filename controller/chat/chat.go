package chat

import (
	"context"
	"net/http"

	"viegrand/dto"
	"viegrand/middleware"
	"viegrand/model"
	"viegrand/services"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
)

func ChatController(router *gin.Engine, firestoreClient *firestore.Client) {
	routes := router.Group("/chat", middleware.AccessTokenMiddleware())
	{
		routes.POST("/room", func(c *gin.Context) {
			EnsureRoom(c, firestoreClient)
		})
		routes.POST("/message", func(c *gin.Context) {
			SendMessage(c, firestoreClient)
		})
	}
}

// EnsureRoom is called on every app foreground; the underlying upsert is
// idempotent per pair.
func EnsureRoom(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	var request dto.EnsureRoomRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctx := context.Background()
	mySnap, err := services.GetUserByID(ctx, firestoreClient, userId)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}
	var me model.User
	if err := mySnap.DataTo(&me); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	otherSnap, err := services.GetUserByID(ctx, firestoreClient, request.OtherUserID)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}
	var other model.User
	if err := otherSnap.DataTo(&other); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	otherName := request.OtherUserName
	if otherName == "" {
		otherName = other.Name
	}

	roomId, err := services.EnsureChatRoom(ctx, firestoreClient, userId, me.Name, other.UID, otherName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create chat room"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"roomId": roomId})
}

func SendMessage(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	var request dto.SendMessageRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if request.Type != "image" && request.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message text is required"})
		return
	}
	if services.OtherParticipant(request.RoomID, userId) == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a participant of this room"})
		return
	}

	ctx := context.Background()
	mySnap, err := services.GetUserByID(ctx, firestoreClient, userId)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}
	var me model.User
	if err := mySnap.DataTo(&me); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	messageId, err := services.SendMessage(ctx, firestoreClient, request.RoomID, userId, me.Name, request.Text, request.Type, request.Image)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"messageId": messageId})
}
