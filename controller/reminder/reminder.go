package reminder

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"viegrand/dto"
	"viegrand/middleware"
	"viegrand/model"
	"viegrand/services"

	"cloud.google.com/go/firestore"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func ReminderController(router *gin.Engine, firestoreClient *firestore.Client) {
	routes := router.Group("/reminder", middleware.AccessTokenMiddleware())
	{
		routes.POST("", func(c *gin.Context) {
			CreateReminder(c, firestoreClient)
		})
		routes.GET("", func(c *gin.Context) {
			ListReminders(c, firestoreClient)
		})
		routes.PUT("/:id/done", func(c *gin.Context) {
			MarkDone(c, firestoreClient)
		})
	}
}

func CreateReminder(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	var request dto.CreateReminderRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	// Validation happens before any write; the user is re-prompted on
	// failure.
	if !services.IsValidFutureDate(request.Date) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date is invalid or already past"})
		return
	}
	formattedTime, err := services.FormatTimeInput(request.Time)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Time is invalid"})
		return
	}
	if _, err := services.ComposeTrigger(request.Date, formattedTime); err != nil {
		if errors.Is(err, services.ErrPastTrigger) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Reminder time has already passed"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Date is invalid"})
		return
	}

	ctx := context.Background()
	targetSnap, err := services.GetUserByID(ctx, firestoreClient, request.TargetID)
	if err != nil {
		c.JSON(404, gin.H{"error": err.Error()})
		return
	}
	var target model.User
	if err := targetSnap.DataTo(&target); err != nil {
		c.JSON(500, gin.H{"error": "Failed to parse user data"})
		return
	}

	if request.TargetID != userId && !isFamilyMember(target, userId) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Target is not a linked family member"})
		return
	}

	reminderid := uuid.New().String()

	newReminder := model.Reminder{
		ReminderID: reminderid,
		Title:      request.Title,
		Content:    request.Content,
		Date:       request.Date,
		Time:       formattedTime,
		Type:       request.Type,
		IsDone:     false,
		CreatedBy:  userId,
	}

	remindersCol := firestoreClient.Collection("users").Doc(request.TargetID).Collection("reminders")
	if _, err := remindersCol.Doc(reminderid).Set(ctx, newReminder); err != nil {
		c.JSON(500, gin.H{"error": "Failed to create reminder"})
		return
	}

	// The paired notification record is what the target's feed watcher
	// turns into the device alert at trigger time.
	rec := model.Notification{
		Title:        request.Title,
		Body:         fmt.Sprintf("%s at %s", request.Content, formattedTime),
		Type:         model.NotificationTypeReminder,
		ReminderID:   reminderid,
		ReminderKind: request.Type,
		Date:         request.Date,
		Time:         formattedTime,
		IsDone:       false,
	}
	if _, err := services.AddNotification(ctx, firestoreClient, request.TargetID, rec); err != nil {
		// Without the record the alert would never fire; roll the
		// reminder back rather than leave it half-created.
		remindersCol.Doc(reminderid).Delete(ctx)
		c.JSON(500, gin.H{"error": "Failed to create notification"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Reminder created successfully",
		"reminderID": reminderid,
	})
}

func ListReminders(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)

	ctx := context.Background()
	iter := firestoreClient.Collection("users").Doc(userId).Collection("reminders").
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	reminders := []model.Reminder{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		var reminder model.Reminder
		if err := doc.DataTo(&reminder); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse reminder data"})
			return
		}
		if reminder.ReminderID == "" {
			reminder.ReminderID = doc.Ref.ID
		}
		reminders = append(reminders, reminder)
	}

	c.JSON(http.StatusOK, reminders)
}

// MarkDone flips isDone to true. The flag is monotonic, so repeating the
// call is harmless.
func MarkDone(c *gin.Context, firestoreClient *firestore.Client) {
	userId := c.MustGet("userId").(string)
	reminderId := c.Param("id")

	ctx := context.Background()
	ref := firestoreClient.Collection("users").Doc(userId).Collection("reminders").Doc(reminderId)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "isDone", Value: true},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Reminder not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update reminder"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Reminder marked as done"})
}

func isFamilyMember(user model.User, uid string) bool {
	for _, member := range user.FamilyMembers {
		if member == uid {
			return true
		}
	}
	return false
}
