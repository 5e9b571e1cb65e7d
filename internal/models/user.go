package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the 1:1 extension of a User, created at registration.
type Profile struct {
	UserID     uuid.UUID `json:"-"`
	Phone      *string   `json:"phone"`
	ClassLevel *string   `json:"class_level"`
	Avatar     *string   `json:"avatar"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserWithProfile is the shape returned by the profile endpoints.
type UserWithProfile struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    *string   `json:"email"`
	Profile  *Profile  `json:"profile"`
}

type RegisterRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Phone      string `json:"phone"`
	ClassLevel string `json:"class_level"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ClassLevel string `json:"class_level"`
	Avatar     string `json:"avatar"`
}

type AuthTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}
