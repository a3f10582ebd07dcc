// Package token hands out OAuth access tokens that are valid at the moment of
// use, refreshing and persisting them first when they have expired.
package token

import (
	"context"
	"errors"
	"time"

	"smart-email/internal/apperr"
	"smart-email/internal/logger"
	"smart-email/internal/metrics"
	"smart-email/internal/model"
	"smart-email/internal/repository"

	"golang.org/x/oauth2"
)

// defaultLifetime is assumed when the provider omits an expiry.
const defaultLifetime = time.Hour

// Refresher exchanges a refresh token for a new access token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

type Manager struct {
	creds     repository.CredentialRepository
	refresher Refresher
	logger    *logger.Logger
	now       func() time.Time
}

func NewManager(creds repository.CredentialRepository, refresher Refresher, logger *logger.Logger) *Manager {
	return &Manager{creds: creds, refresher: refresher, logger: logger, now: time.Now}
}

// GetValidToken returns cred's access token, refreshing it when now is at or
// past its expiry. A refreshed token is written to cred and persisted before
// it is returned.
func (m *Manager) GetValidToken(ctx context.Context, cred *model.OAuthCredential) (string, error) {
	const op = "token.GetValidToken"

	now := m.now()
	if !cred.Expired(now) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" {
		metrics.RecordTokenRefresh(errors.New("no refresh token"))
		return "", apperr.New(apperr.KindCredentialExpired, op, "access token expired and no refresh token is stored")
	}

	m.logger.Debugf("refreshing access token for owner %s", cred.OwnerID)
	tok, err := m.refresher.Refresh(ctx, cred.RefreshToken)
	metrics.RecordTokenRefresh(err)
	if err != nil {
		return "", &apperr.Error{Kind: apperr.KindCredentialExpired, Op: op, Msg: "token refresh failed, sign in again", Err: err}
	}
	if tok == nil || tok.AccessToken == "" {
		return "", apperr.New(apperr.KindCredentialExpired, op, "token refresh returned no access token")
	}

	updated := *cred
	updated.AccessToken = tok.AccessToken
	updated.ExpiresAt = tok.Expiry
	if tok.Expiry.IsZero() {
		updated.ExpiresAt = now.Add(defaultLifetime)
	}
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}

	if err := m.creds.UpdateTokens(ctx, &updated); err != nil {
		m.logger.Errorf("failed to persist refreshed token for owner %s: %v", cred.OwnerID, err)
		return "", apperr.Wrap(apperr.KindStore, op, err)
	}

	*cred = updated
	return cred.AccessToken, nil
}
