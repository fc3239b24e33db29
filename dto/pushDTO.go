package dto

type SendNotificationRequest struct {
	UserID string            `json:"userId" binding:"required"`
	Title  string            `json:"title" binding:"required"`
	Body   string            `json:"body" binding:"required"`
	Data   map[string]string `json:"data"`
}
