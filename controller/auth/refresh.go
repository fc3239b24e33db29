package auth

import (
	"context"
	"net/http"

	"viegrand/middleware"
	"viegrand/model"
	"viegrand/services"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
)

func RefreshTokenController(router *gin.Engine, firestoreClient *firestore.Client) {
	router.POST("/auth/refresh", middleware.RefreshTokenMiddleware(), func(c *gin.Context) {
		RefreshToken(c, firestoreClient)
	})
}

func RefreshToken(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)
	presented := c.MustGet("refreshToken").(string)

	ctx := context.Background()
	snap, err := firestoreClient.Collection("refreshTokens").Doc(userId).Get(ctx)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token not found"})
		return
	}

	var stored model.TokenResponse
	if err := snap.DataTo(&stored); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse refresh token"})
		return
	}
	if stored.Revoked {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token has been revoked"})
		return
	}
	if err := services.CompareRefreshToken(stored.RefreshToken, presented); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token does not match"})
		return
	}

	userSnap, err := services.GetUserByID(ctx, firestoreClient, userId)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}
	var user model.User
	if err := userSnap.DataTo(&user); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	accessToken, err := services.CreateAccessToken(user.UID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create access token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}
