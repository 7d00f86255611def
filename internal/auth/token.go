package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// hasuraClaimsKey is the namespace under which the provider puts the
// backend's authorization claims.
const hasuraClaimsKey = "https://hasura.io/jwt/claims"

// tokenClaims reads the claims the client cares about without verifying the
// signature. Verification is the backend's job; the client only needs to
// know when to refresh.
type tokenClaims struct {
	ExpiresAt time.Time
	UserID    string
}

func parseToken(token string) (tokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return tokenClaims{}, fmt.Errorf("parse access token: %w", err)
	}

	var out tokenClaims
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return tokenClaims{}, fmt.Errorf("read token expiry: %w", err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		out.UserID = sub
	}
	if hasura, ok := claims[hasuraClaimsKey].(map[string]any); ok {
		if id, ok := hasura["x-hasura-user-id"].(string); ok && id != "" {
			out.UserID = id
		}
	}
	return out, nil
}

// expiry picks the token's expiry from its exp claim, falling back to the
// provider-reported lifetime when the claim is absent or unreadable.
func expiry(token string, expiresIn int64, now time.Time) time.Time {
	if claims, err := parseToken(token); err == nil && !claims.ExpiresAt.IsZero() {
		return claims.ExpiresAt
	}
	return now.Add(time.Duration(expiresIn) * time.Second)
}
