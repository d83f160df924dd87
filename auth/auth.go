// Package auth is the boundary to the authentication provider. The service
// only consumes the current identity; sessions, tokens and credential
// storage live on the provider's side.
package auth

import (
	"context"
	"errors"
)

// ErrUnauthenticated is returned when no current identity can be obtained.
// Callers surface it distinctly (redirect to sign-in) instead of rendering
// an empty view.
var ErrUnauthenticated = errors.New("no authenticated user")

// IdentityProvider yields the identity of the current user.
type IdentityProvider interface {
	CurrentIdentity(ctx context.Context) (string, error)
}

// Static is a fixed identity, used by tests and seeding tools.
type Static string

func (s Static) CurrentIdentity(ctx context.Context) (string, error) {
	if s == "" {
		return "", ErrUnauthenticated
	}
	return string(s), nil
}

type tokenKey struct{}

// WithToken attaches a raw bearer token to the context for TokenProvider to
// verify. An empty token is not attached.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}
