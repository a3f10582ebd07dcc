package service

import (
	"context"
	"time"

	"smart-email/internal/mailbox"
	"smart-email/internal/model"
)

type AuthService interface {
	// LinkAccount creates or updates the user for a Google sign-in and stores
	// its OAuth credential. An empty refreshToken keeps the stored one.
	LinkAccount(ctx context.Context, googleID, email, name, accessToken, refreshToken string, expiresAt time.Time) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// PageResult is one page of the inbox view. Total is the number of messages
// in the mailbox (or of stored records, for ListStored), not len(Items).
type PageResult struct {
	Items    []*model.ClassifiedEmail `json:"emails"`
	Total    int                      `json:"total"`
	Page     int                      `json:"page"`
	PageSize int                      `json:"limit"`
}

type EmailService interface {
	// SyncPage fetches one page of the mailbox, classifies the messages not
	// seen before and returns the merged page newest first.
	SyncPage(ctx context.Context, identity model.Identity, page, pageSize int) (PageResult, error)
	ListStored(ctx context.Context, identity model.Identity, page, pageSize int) (PageResult, error)
	Archive(ctx context.Context, identity model.Identity, emailID string) error
}

// MailboxFetcher reads one page of a user's mailbox.
type MailboxFetcher interface {
	FetchPage(ctx context.Context, identity model.Identity, cred *model.OAuthCredential, page, pageSize int) (mailbox.Page, error)
}

// Classifier classifies one message; tools.Router implements it.
type Classifier interface {
	Classify(ctx context.Context, req model.ClassificationRequest) (model.ClassificationResponse, error)
}
