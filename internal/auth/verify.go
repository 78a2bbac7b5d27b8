package auth

import (
	"context"
	"fmt"
)

// VersionSource returns the current token version of a user.
type VersionSource interface {
	GetTokenVersion(ctx context.Context, userID string) (int, error)
}

// Authenticator validates raw bearer tokens for the HTTP API and the sync
// transports alike.
type Authenticator struct {
	Tokens   TokenService
	Versions VersionSource
}

func NewAuthenticator(tokens TokenService, versions VersionSource) *Authenticator {
	return &Authenticator{Tokens: tokens, Versions: versions}
}

// Verify parses raw and rejects tokens revoked by a version bump.
func (a *Authenticator) Verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := a.Tokens.Parse(raw)
	if err != nil {
		return nil, err
	}
	if a.Versions == nil {
		return claims, nil
	}

	current, err := a.Versions.GetTokenVersion(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("check token version: %w", err)
	}
	if current != claims.TokenVersion {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
