// Package session provides SQLite-backed persistence for the client's
// credentials and UI preferences. Chat data is never stored locally.
package session

import "time"

// Credentials is the persisted refresh token for one identity provider.
type Credentials struct {
	Scope        string
	RefreshToken string
	Email        string
	UpdatedAt    time.Time
}

// Preference keys.
const (
	PrefLastThread = "last_thread"
)
