// Package auth validates bearer tokens against the identity provider's
// JWKS endpoint. When no provider is configured (dev mode) the token is
// treated as an opaque user id so local clients and tests can connect
// without an identity service.
package auth

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"tetrad-server/matcherrors"
)

// TokenValidator resolves a bearer token to a user id. The ws and api
// layers take one of these so tests can inject identities directly.
type TokenValidator func(token string) (userID string, err error)

// NewValidator builds a TokenValidator for the given auth base URL. An
// empty baseURL yields the dev validator, which accepts any non-empty
// token as the user id itself.
func NewValidator(baseURL string) TokenValidator {
	if baseURL == "" {
		return func(token string) (string, error) {
			token = strings.TrimSpace(token)
			if token == "" {
				return "", matcherrors.ErrInvalidToken
			}
			return token, nil
		}
	}
	return func(token string) (string, error) {
		claims, err := ValidateToken(baseURL, token)
		if err != nil {
			return "", err
		}
		userID := UserIDFromClaims(claims)
		if userID == "" {
			return "", matcherrors.ErrInvalidToken
		}
		return userID, nil
	}
}

// ValidateToken validates a JWT against the provider's JWKS and returns
// the claims. baseURL is the identity provider base URL.
func ValidateToken(baseURL, tokenString string) (jwt.MapClaims, error) {
	jwksURL := baseURL + "/.well-known/jwks.json"

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth base URL: %w", err)
	}
	expectedIssuer := u.Scheme + "://" + u.Host

	jwks, err := keyfunc.NewDefault([]string{jwksURL})
	if err != nil {
		return nil, err
	}

	token, err := jwt.Parse(tokenString, jwks.Keyfunc,
		jwt.WithIssuer(expectedIssuer),
		jwt.WithValidMethods([]string{"EdDSA", "RS256"}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, matcherrors.ErrInvalidToken
	}
	return claims, nil
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}
