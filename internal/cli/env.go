// env.go wires configuration, logging, the session store, and the backend
// clients shared by every command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/berth-dev/threadline/internal/auth"
	"github.com/berth-dev/threadline/internal/backend"
	"github.com/berth-dev/threadline/internal/chat"
	"github.com/berth-dev/threadline/internal/config"
	"github.com/berth-dev/threadline/internal/graphql"
	"github.com/berth-dev/threadline/internal/log"
	"github.com/berth-dev/threadline/internal/session"
)

const sessionDB = "session.db"

// errNotSignedIn is returned by commands that need a session.
var errNotSignedIn = errors.New("not signed in; run: threadline login")

type env struct {
	dir     string
	cfg     *config.Config
	logger  *log.Logger
	store   *session.Store
	auth    *auth.Client
	backend *backend.Hasura
	sender  *chat.Sender
}

func openEnv() (*env, error) {
	dir := configDir
	if dir == "" {
		dir = config.DefaultDir()
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration (%s):\n%w", filepath.Join(dir, "config.yaml"), err)
	}

	logger, err := log.NewLogger(dir, log.Options{
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, err
	}

	store, err := session.NewStore(filepath.Join(dir, sessionDB), cfg.Auth.URL)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Backend.RequestTimeout.Duration}
	authClient := auth.NewClient(auth.Options{
		BaseURL:       cfg.Auth.URL,
		HTTPClient:    httpClient,
		Store:         store,
		Logger:        logger,
		RefreshMargin: cfg.Auth.RefreshMargin.Duration,
	})
	gql := graphql.NewClient(graphql.Options{
		Endpoint:      cfg.Backend.GraphQLURL,
		WSEndpoint:    cfg.Backend.WSURL,
		Tokens:        authClient,
		HTTPClient:    httpClient,
		Logger:        logger,
		MaxReconnects: cfg.Backend.MaxReconnects,
	})
	be := backend.New(gql, logger)

	return &env{
		dir:     dir,
		cfg:     cfg,
		logger:  logger,
		store:   store,
		auth:    authClient,
		backend: be,
		sender:  chat.NewSender(be, logger),
	}, nil
}

// Close releases the session store and flushes the log.
func (e *env) Close() {
	_ = e.store.Close()
	_ = e.logger.Sync()
}

// requireSession restores the stored session or fails with errNotSignedIn.
func (e *env) requireSession(ctx context.Context) error {
	status, err := e.auth.Restore(ctx)
	if err != nil {
		return fmt.Errorf("restoring session: %w", err)
	}
	if status != auth.StatusAuthenticated {
		return errNotSignedIn
	}
	return nil
}

// validateThreadID checks that id is a thread UUID.
func validateThreadID(id string, optional bool) error {
	if id == "" {
		if optional {
			return nil
		}
		return errors.New("--thread is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid thread id %q: %w", id, err)
	}
	return nil
}
