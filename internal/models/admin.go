package models

import (
	"time"

	"github.com/google/uuid"
)

// Admin is an account allowed to change site settings.
type Admin struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewAdmin creates a new Admin with a fresh id.
func NewAdmin(email, passwordHash string) *Admin {
	now := time.Now()
	return &Admin{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// PasswordLoginRequest is the body of a password sign-in.
type PasswordLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
