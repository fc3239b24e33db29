package user

import (
	"context"
	"net/http"
	"time"

	"viegrand/dto"
	"viegrand/middleware"
	"viegrand/model"
	"viegrand/services"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
)

func UserController(router *gin.Engine, firestoreClient *firestore.Client) {
	routes := router.Group("/user", middleware.AccessTokenMiddleware())
	{
		routes.GET("/profile", func(c *gin.Context) {
			GetProfile(c, firestoreClient)
		})
		routes.GET("/family", func(c *gin.Context) {
			ListFamily(c, firestoreClient)
		})
		routes.POST("/pair", func(c *gin.Context) {
			PairByPrivateKey(c, firestoreClient)
		})
		routes.POST("/pushtoken", func(c *gin.Context) {
			RegisterPushToken(c, firestoreClient)
		})
	}
}

func GetProfile(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	ctx := context.Background()
	docSnap, err := services.GetUserByID(ctx, firestoreClient, userId)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := docSnap.DataTo(&user); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":           user.UID,
		"name":          user.Name,
		"email":         user.Email,
		"role":          user.Role,
		"privateKey":    user.PrivateKey,
		"familyMembers": user.FamilyMembers,
	})
}

func ListFamily(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	ctx := context.Background()
	docSnap, err := services.GetUserByID(ctx, firestoreClient, userId)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := docSnap.DataTo(&user); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	members := []dto.UserResponse{}
	for _, memberID := range user.FamilyMembers {
		memberSnap, err := services.GetUserByID(ctx, firestoreClient, memberID)
		if err != nil {
			// A dangling link is skipped, not fatal to the listing.
			continue
		}
		var member model.User
		if err := memberSnap.DataTo(&member); err != nil {
			continue
		}
		members = append(members, dto.UserResponse{
			UID:       member.UID,
			Name:      member.Name,
			Email:     member.Email,
			Role:      member.Role,
			CreatedAt: member.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, members)
}

// PairByPrivateKey links the caller with the owner of the presented
// pairing code, both directions at once.
func PairByPrivateKey(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	var request dto.PairRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctx := context.Background()
	otherSnap, err := services.GetUserByPrivateKey(ctx, firestoreClient, request.PrivateKey)
	if err != nil {
		c.JSON(404, gin.H{"error": "Pairing code is invalid or the user does not exist"})
		return
	}

	var other model.User
	if err := otherSnap.DataTo(&other); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}
	if other.UID == userId {
		c.JSON(http.StatusBadRequest, gin.H{"error": "You are scanning your own code"})
		return
	}

	if err := services.LinkFamilyMembers(ctx, firestoreClient, userId, other.UID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to link accounts"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Connected successfully",
		"uid":     other.UID,
		"name":    other.Name,
	})
}

func RegisterPushToken(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	var request dto.RegisterTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	ctx := context.Background()
	if err := services.RegisterPushToken(ctx, firestoreClient, userId, request.Token); err != nil {
		if err == services.ErrUserNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register push token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Push token registered"})
}
