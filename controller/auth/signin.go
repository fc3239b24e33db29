package auth

import (
	"context"
	"net/http"
	"time"

	"viegrand/dto"
	"viegrand/middleware"
	"viegrand/model"
	"viegrand/notification"
	"viegrand/services"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

func SignInController(router *gin.Engine, firestoreClient *firestore.Client, watch *notification.Manager) {
	router.POST("/auth/signin", func(c *gin.Context) {
		Signin(c, firestoreClient, watch)
	})
	router.POST("/auth/signout", middleware.AccessTokenMiddleware(), func(c *gin.Context) {
		Signout(c, firestoreClient, watch)
	})
}

func Signin(c *gin.Context, firestoreClient *firestore.Client, watch *notification.Manager) {
	var request dto.SigninRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := context.Background()
	docSnap, err := services.GetUserByEmail(ctx, firestoreClient, request.Email)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}

	var user model.User
	if err := docSnap.DataTo(&user); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid password"})
		return
	}

	accessToken, err := services.CreateAccessToken(user.UID, user.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create access token"})
		return
	}

	refreshToken, err := services.CreateRefreshToken(user.UID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create refresh token"})
		return
	}

	hashedRefreshToken, err := services.HashRefreshToken(refreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash refresh token"})
		return
	}

	now := time.Now()
	expiresAt := now.Add(7 * 24 * time.Hour).Unix()
	issuedAt := now.Unix()

	refreshTokenData := model.TokenResponse{
		UserID:       user.UID,
		RefreshToken: hashedRefreshToken,
		CreatedAt:    issuedAt,
		Revoked:      false,
		ExpiresIn:    expiresAt - issuedAt,
	}

	if _, err := firestoreClient.Collection("refreshTokens").Doc(user.UID).Set(c, refreshTokenData); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store refresh token"})
		return
	}

	// Stamp the activity marker the inactivity sweep watches, and register
	// the device token when the client sent one.
	if request.FcmToken != "" {
		if err := services.RegisterPushToken(ctx, firestoreClient, user.UID, request.FcmToken); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register push token"})
			return
		}
	} else if err := services.TouchLastLogin(ctx, firestoreClient, user.UID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update login status"})
		return
	}

	// Open the notification feed for this session.
	watch.SignIn(context.Background(), user.UID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login Successfully",
		"uid":     user.UID,
		"role":    user.Role,
		"token": gin.H{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
	})
}

func Signout(c *gin.Context, firestoreClient *firestore.Client, watch *notification.Manager) {
	userId := c.MustGet("userId").(string)

	// Teardown is unconditional: the feed must stop firing for a
	// signed-out session even if revoking the refresh token fails.
	watch.SignOut(userId)

	ctx := context.Background()
	_, err := firestoreClient.Collection("refreshTokens").Doc(userId).Set(ctx, map[string]interface{}{
		"revoked": true,
	}, firestore.MergeAll)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke refresh token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}
