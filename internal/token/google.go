package token

import (
	"context"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleRefresher refreshes tokens against Google's OAuth endpoint.
type GoogleRefresher struct {
	config *oauth2.Config
}

func NewGoogleRefresher(clientID, clientSecret string) *GoogleRefresher {
	return &GoogleRefresher{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
	}
}

func (g *GoogleRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	// an already-expired token forces the source to hit the token endpoint
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	return g.config.TokenSource(ctx, expired).Token()
}
