// Package auth is the client for the managed identity provider: email and
// password sign-in and sign-up, token refresh, and sign-out.
package auth

import (
	"errors"
	"fmt"
	"time"
)

// Status is the session state the auth gate renders from.
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// User is the authenticated account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session holds the credentials for an authenticated user.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User
}

// ErrInvalidCredentials matches provider errors reporting an unknown email
// or a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrNotAuthenticated is returned when an access token is requested without
// a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// Error is an error reported by the identity provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("auth request failed with status %d", e.Status)
}

// Is classifies provider error codes onto package sentinels.
func (e *Error) Is(target error) bool {
	if target != ErrInvalidCredentials {
		return false
	}
	switch e.Code {
	case "invalid-email-password", "invalid-username-password":
		return true
	}
	return e.Message == "invalid-username-password" || e.Message == "invalid-email-password"
}

// TokenStore persists the refresh token between runs.
type TokenStore interface {
	LoadRefreshToken() (token string, email string, err error)
	SaveRefreshToken(token, email string) error
	ClearRefreshToken() error
}
