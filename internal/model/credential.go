package model

import (
	"time"

	"github.com/google/uuid"
)

const ProviderGoogle = "google"

// OAuthCredential is the token pair linked to a user's mail account. It is
// mutated in place when the access token is refreshed.
type OAuthCredential struct {
	ID           string    `json:"id" db:"id"`
	OwnerID      string    `json:"owner_id" db:"owner_id"`
	Provider     string    `json:"provider" db:"provider"`
	AccessToken  string    `json:"-" db:"access_token"`
	RefreshToken string    `json:"-" db:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func NewOAuthCredential(ownerID, accessToken, refreshToken string, expiresAt time.Time) *OAuthCredential {
	now := time.Now()
	return &OAuthCredential{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Provider:     ProviderGoogle,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Expired reports whether the access token can no longer be used at now.
func (c *OAuthCredential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
