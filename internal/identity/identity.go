// Package identity answers "who is signed in" and mints bearer tokens for the backend.
//
// [OAuthProvider] keeps an OAuth2 session in a [TokenStore]. With an issuer
// configured it discovers endpoints and verifies ID tokens via OpenID Connect;
// otherwise the ID token's claims are decoded without verification. [Static]
// serves fixed answers.
package identity

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/desertthunder/transcribeflow/internal/models"
)

// ErrNotConfigured is returned when a login is attempted without client settings.
var ErrNotConfigured = errors.New("identity provider is not configured")

// Provider reports the current user and mints bearer tokens.
type Provider interface {
	// Load refreshes the provider's view of the session. A missing session is not an error.
	Load(ctx context.Context) error
	// CurrentUser returns the signed-in user, or nil.
	CurrentUser() *models.User
	// SessionToken returns a bearer token, or "" when no one is signed in.
	SessionToken(ctx context.Context) (string, error)
}

// TokenStore persists the OAuth2 session between runs.
type TokenStore interface {
	LoadToken(ctx context.Context) (*oauth2.Token, error)
	SaveToken(ctx context.Context, token *oauth2.Token) error
	ClearToken(ctx context.Context) error
}

// Static is a [Provider] with fixed answers.
type Static struct {
	User  *models.User
	Token string
	Err   error
}

func (s *Static) Load(context.Context) error { return s.Err }

func (s *Static) CurrentUser() *models.User {
	if s.Err != nil {
		return nil
	}
	return s.User
}

func (s *Static) SessionToken(context.Context) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Token, nil
}
