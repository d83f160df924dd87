package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by a session token. UserID is the identity the auth
// provider assigned at signup.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenProvider verifies a bearer token from the request context and
// extracts the user identity from it.
type TokenProvider struct {
	Secret []byte
}

func NewTokenProvider(secret []byte) *TokenProvider {
	return &TokenProvider{Secret: secret}
}

func (p *TokenProvider) CurrentIdentity(ctx context.Context) (string, error) {
	raw := tokenFromContext(ctx)
	if raw == "" {
		return "", ErrUnauthenticated
	}
	claims, err := p.parseToken(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if claims.UserID == "" {
		return "", ErrUnauthenticated
	}
	return claims.UserID, nil
}

// GenerateToken issues a signed session token for the given identity.
func (p *TokenProvider) GenerateToken(userID string) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.Secret)
}

func (p *TokenProvider) parseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.Secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token has expired")
	}
	return claims, nil
}
