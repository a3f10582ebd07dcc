package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        string    `json:"id" db:"id"`
	GoogleID  string    `json:"google_id" db:"google_id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func NewUser(googleID, email, name string) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New().String(),
		GoogleID:  googleID,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Identity is an already-authenticated caller of the pipeline.
type Identity struct {
	UserID string
	Email  string
}
