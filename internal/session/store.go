package session

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store provides SQLite-backed persistence scoped to one identity provider
// endpoint, so switching backends never mixes credentials.
type Store struct {
	db    *sql.DB
	scope string
}

// NewStore opens the SQLite database at dbPath and creates tables if they don't exist.
func NewStore(dbPath, scope string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db, scope: scope}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		scope TEXT PRIMARY KEY,
		refresh_token TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS preferences (
		scope TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (scope, key)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// LoadRefreshToken returns the stored refresh token and email, or empty
// strings when none is stored.
func (s *Store) LoadRefreshToken() (string, string, error) {
	creds, err := s.GetCredentials()
	if err != nil {
		return "", "", err
	}
	if creds == nil {
		return "", "", nil
	}
	return creds.RefreshToken, creds.Email, nil
}

// GetCredentials retrieves the stored credentials for this scope.
func (s *Store) GetCredentials() (*Credentials, error) {
	row := s.db.QueryRow(
		`SELECT scope, refresh_token, email, updated_at
		 FROM credentials WHERE scope = ?`,
		s.scope,
	)

	var creds Credentials
	err := row.Scan(&creds.Scope, &creds.RefreshToken, &creds.Email, &creds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan credentials: %w", err)
	}

	return &creds, nil
}

// SaveRefreshToken stores or replaces the refresh token for this scope.
func (s *Store) SaveRefreshToken(token, email string) error {
	_, err := s.db.Exec(
		`INSERT INTO credentials (scope, refresh_token, email, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET
		   refresh_token = excluded.refresh_token,
		   email = excluded.email,
		   updated_at = excluded.updated_at`,
		s.scope, token, email, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}

	return nil
}

// ClearRefreshToken removes the stored credentials and the preferences tied
// to the signed-in user.
func (s *Store) ClearRefreshToken() error {
	if _, err := s.db.Exec(`DELETE FROM credentials WHERE scope = ?`, s.scope); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM preferences WHERE scope = ? AND key = ?`, s.scope, PrefLastThread); err != nil {
		return fmt.Errorf("delete last thread: %w", err)
	}

	return nil
}

// GetPreference returns the value stored under key, or "" if unset.
func (s *Store) GetPreference(key string) (string, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM preferences WHERE scope = ? AND key = ?`,
		s.scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan preference: %w", err)
	}

	return value, nil
}

// SetPreference stores value under key. An empty value deletes the key.
func (s *Store) SetPreference(key, value string) error {
	if value == "" {
		if _, err := s.db.Exec(`DELETE FROM preferences WHERE scope = ? AND key = ?`, s.scope, key); err != nil {
			return fmt.Errorf("delete preference: %w", err)
		}
		return nil
	}

	_, err := s.db.Exec(
		`INSERT INTO preferences (scope, key, value, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		s.scope, key, value, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}

	return nil
}

// LastThread returns the thread that was open when the client last ran.
func (s *Store) LastThread() (string, error) {
	return s.GetPreference(PrefLastThread)
}

// SetLastThread remembers the open thread.
func (s *Store) SetLastThread(threadID string) error {
	return s.SetPreference(PrefLastThread, threadID)
}
