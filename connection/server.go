package connection

import (
	"log"

	"viegrand/controller/auth"
	"viegrand/controller/chat"
	"viegrand/controller/notifications"
	"viegrand/controller/push"
	"viegrand/controller/reminder"
	"viegrand/controller/user"
	"viegrand/notification"
	"viegrand/scheduler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func StartServer() {
	router := gin.Default()

	fb, msg, err := FBConnection()
	if err != nil {
		log.Fatalf("Failed to initialize Firebase clients: %v", err)
	}

	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "Api is running!"})
	})

	router.Use(cors.Default())

	// Notification delivery pipeline: per-session feed watchers feeding
	// the keyed alarm registry, immediate FCM delivery and the badge
	// mirror.
	notifier := &notification.FCMNotifier{Messaging: msg, Users: fb}
	alarms := notification.NewRegistry(notifier)
	badge := notification.NewBadgeCounter(&notification.FCMBadgeSink{Messaging: msg, Users: fb})
	watch := notification.NewManager(&notification.FirestoreSource{Client: fb}, alarms, notifier, badge)

	// Daily elder-inactivity sweep.
	go scheduler.StartScheduler(fb, msg)

	auth.SignInController(router, fb, watch)
	auth.SignUpController(router, fb)
	auth.RefreshTokenController(router, fb)
	user.UserController(router, fb)
	reminder.ReminderController(router, fb)
	notifications.NotificationController(router, fb)
	chat.ChatController(router, fb)
	push.SendNotificationController(router, fb, msg)

	router.Run()
}
