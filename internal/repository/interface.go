package repository

import (
	"context"
	"errors"
	"math"

	"smart-email/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateKey is returned when an email with the same (user, remote id) exists.
	ErrDuplicateKey = errors.New("record already exists")
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// CredentialRepository stores the OAuth credential linked to each user.
type CredentialRepository interface {
	// Upsert creates the owner's credential or replaces its tokens.
	Upsert(ctx context.Context, cred *model.OAuthCredential) error
	FindByOwner(ctx context.Context, ownerID string) (*model.OAuthCredential, error)
	// UpdateTokens persists a refreshed access token (and rotated refresh token).
	UpdateTokens(ctx context.Context, cred *model.OAuthCredential) error
}

// EmailRepository is the record store for classified emails.
type EmailRepository interface {
	// Create inserts a new record, returning ErrDuplicateKey when the
	// (UserID, RemoteID) pair is already present.
	Create(ctx context.Context, email *model.ClassifiedEmail) error
	FindByID(ctx context.Context, id string) (*model.ClassifiedEmail, error)
	FindByRemoteID(ctx context.Context, userID, remoteID string) (*model.ClassifiedEmail, error)
	// ListByUser returns one page of non-archived records ordered by
	// ReceivedAt descending, plus the total count of non-archived records.
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*model.ClassifiedEmail, int, error)
	Archive(ctx context.Context, userID, id string) error
}

// Offset converts a 1-indexed page into a row offset. Offsets that would
// overflow saturate at math.MaxInt.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize < 1 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}
