package dto

type CreateReminderRequest struct {
	// TargetID is the elder the reminder belongs to. An elder may target
	// themselves; a relative may target a linked elder.
	TargetID string `json:"targetId" binding:"required"`
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	Date     string `json:"date" binding:"required"` // DD/MM/YYYY
	Time     string `json:"time" binding:"required"` // free-form digits, canonicalized server-side
	Type     string `json:"type" binding:"required,oneof=pill water exercise other"`
}
