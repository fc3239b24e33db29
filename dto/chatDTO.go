package dto

type EnsureRoomRequest struct {
	OtherUserID   string `json:"otherUserId" binding:"required"`
	OtherUserName string `json:"otherUserName"`
}

type SendMessageRequest struct {
	RoomID string `json:"roomId" binding:"required"`
	Text   string `json:"text"`
	Type   string `json:"type" binding:"omitempty,oneof=text image"`
	Image  string `json:"image"`
}
