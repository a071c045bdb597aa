package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest payload of account creation.
// swagger:model RegisterRequest
type RegisterRequest struct {
	Username string `json:"username" example:"asha"`
	Email    string `json:"email"    example:"asha@example.com"`
	Password string `json:"password" example:"s3cret"`
}

// LoginRequest payload of authentication.
// swagger:model LoginRequest
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
