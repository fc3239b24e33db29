package dto

type UserResponse struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

type PairRequest struct {
	PrivateKey string `json:"privateKey" binding:"required"`
}

type RegisterTokenRequest struct {
	Token string `json:"token" binding:"required"`
}
