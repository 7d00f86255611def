package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/berth-dev/threadline/internal/log"
)

const defaultRefreshMargin = 60 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL       string
	HTTPClient    *http.Client
	Store         TokenStore
	Logger        *log.Logger
	RefreshMargin time.Duration
	Now           func() time.Time
}

// Client talks to the identity provider and owns the current session.
// It is safe for concurrent use; network calls run outside the UI loop.
type Client struct {
	baseURL       string
	http          *http.Client
	store         TokenStore
	logger        *log.Logger
	refreshMargin time.Duration
	now           func() time.Time

	// flight collapses concurrent refreshes: the provider's refresh tokens
	// are single use.
	flight singleflight.Group

	mu      sync.Mutex
	status  Status
	session *Session
	// epoch is bumped by SignOut. Results of calls started under an older
	// epoch are discarded.
	epoch uint64
}

// NewClient creates a Client in the Loading state. Call Restore to resolve
// it to Authenticated or Anonymous.
func NewClient(opts Options) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		http:          opts.HTTPClient,
		store:         opts.Store,
		logger:        opts.Logger,
		refreshMargin: opts.RefreshMargin,
		now:           opts.Now,
		status:        StatusLoading,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = log.Nop()
	}
	if c.refreshMargin <= 0 {
		c.refreshMargin = defaultRefreshMargin
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// wire types

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sessionPayload struct {
	AccessToken          string `json:"accessToken"`
	AccessTokenExpiresIn int64  `json:"accessTokenExpiresIn"`
	RefreshToken         string `json:"refreshToken"`
	User                 *User  `json:"user"`
}

type sessionResponse struct {
	Session *sessionPayload `json:"session"`
}

type errorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Status returns the current session state.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// User returns the authenticated user, or the zero User.
func (c *Client) User() User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return User{}
	}
	return c.session.User
}

// Restore resolves the Loading state. A stored refresh token is exchanged
// for a fresh session; without one, or if the exchange is rejected, the
// client becomes Anonymous. Transport failures are returned but still leave
// the client Anonymous so the gate can render the form.
func (c *Client) Restore(ctx context.Context) (Status, error) {
	epoch := c.currentEpoch()
	if c.store == nil {
		c.setAnonymous()
		return StatusAnonymous, nil
	}

	token, email, err := c.store.LoadRefreshToken()
	if err != nil {
		c.setAnonymous()
		return StatusAnonymous, fmt.Errorf("loading refresh token: %w", err)
	}
	if token == "" {
		c.setAnonymous()
		return StatusAnonymous, nil
	}

	sess, err := c.refresh(ctx, token)
	if err != nil {
		var provErr *Error
		if errors.As(err, &provErr) {
			_ = c.store.ClearRefreshToken()
		}
		c.setAnonymous()
		return StatusAnonymous, err
	}
	if sess.User.Email == "" {
		sess.User.Email = email
	}

	if !c.setSession(epoch, sess) {
		return StatusAnonymous, ErrNotAuthenticated
	}
	c.logger.Event(log.EventSessionRestored, zap.String("user_id", sess.User.ID))
	return StatusAuthenticated, nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	epoch := c.currentEpoch()
	var resp sessionResponse
	if err := c.post(ctx, "/signin/email-password", credentialsRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, &Error{Status: http.StatusUnauthorized, Code: "unverified-user", Message: "Email needs verification"}
	}

	sess := c.toSession(resp.Session)
	if sess.User.Email == "" {
		sess.User.Email = email
	}
	if !c.setSession(epoch, sess) {
		return nil, ErrNotAuthenticated
	}
	c.logger.Event(log.EventSignIn, zap.String("user_id", sess.User.ID))
	return sess, nil
}

// SignUp registers a new account. Success means a verification email is on
// its way; the client stays Anonymous.
func (c *Client) SignUp(ctx context.Context, email, password string) error {
	var resp sessionResponse
	if err := c.post(ctx, "/signup/email-password", credentialsRequest{Email: email, Password: password}, &resp); err != nil {
		return err
	}
	c.logger.Event(log.EventSignUp)
	return nil
}

// SignOut revokes the refresh token and clears the local session. The local
// session is cleared first, so it is gone even when the revoke call fails,
// and a refresh still in flight can no longer reinstate it.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	var refreshToken string
	if c.session != nil {
		refreshToken = c.session.RefreshToken
	}
	c.epoch++
	c.session = nil
	c.status = StatusAnonymous
	var clearErr error
	if c.store != nil {
		clearErr = c.store.ClearRefreshToken()
	}
	c.mu.Unlock()

	var callErr error
	if refreshToken != "" {
		callErr = c.post(ctx, "/signout", refreshRequest{RefreshToken: refreshToken}, nil)
	}
	if clearErr != nil && callErr == nil {
		callErr = fmt.Errorf("clearing refresh token: %w", clearErr)
	}
	c.logger.Event(log.EventSignOut)
	return callErr
}

// AccessToken returns a bearer token for backend requests, refreshing it
// when it expires within the refresh margin. Concurrent callers share one
// refresh.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	sess, epoch := c.session, c.epoch
	c.mu.Unlock()

	if sess == nil {
		return "", ErrNotAuthenticated
	}
	if c.fresh(sess) {
		return sess.AccessToken, nil
	}

	// The shared call must outlive any single caller's context.
	ch := c.flight.DoChan(strconv.FormatUint(epoch, 10), func() (any, error) {
		return c.refreshSession(context.WithoutCancel(ctx), epoch)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", fmt.Errorf("refreshing access token: %w", res.Err)
		}
		return res.Val.(*Session).AccessToken, nil
	}
}

func (c *Client) refreshSession(ctx context.Context, epoch uint64) (*Session, error) {
	c.mu.Lock()
	sess, current := c.session, c.epoch
	c.mu.Unlock()
	if sess == nil || current != epoch {
		return nil, ErrNotAuthenticated
	}
	// An earlier flight may already have rotated the token.
	if c.fresh(sess) {
		return sess, nil
	}

	fresh, err := c.refresh(ctx, sess.RefreshToken)
	if err != nil {
		return nil, err
	}
	if fresh.User.Email == "" {
		fresh.User = sess.User
	}
	if !c.setSession(epoch, fresh) {
		return nil, ErrNotAuthenticated
	}
	c.logger.Debug(log.EventTokenRefreshed)
	return fresh, nil
}

func (c *Client) fresh(sess *Session) bool {
	return c.now().Add(c.refreshMargin).Before(sess.ExpiresAt)
}

func (c *Client) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var payload sessionPayload
	if err := c.post(ctx, "/token", refreshRequest{RefreshToken: refreshToken}, &payload); err != nil {
		return nil, err
	}
	if payload.AccessToken == "" {
		return nil, &Error{Status: http.StatusUnauthorized, Code: "invalid-refresh-token", Message: "Invalid or expired refresh token"}
	}
	return c.toSession(&payload), nil
}

func (c *Client) toSession(p *sessionPayload) *Session {
	sess := &Session{
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
		ExpiresAt:    expiry(p.AccessToken, p.AccessTokenExpiresIn, c.now()),
	}
	if p.User != nil {
		sess.User = *p.User
	}
	if sess.User.ID == "" {
		if claims, err := parseToken(p.AccessToken); err == nil {
			sess.User.ID = claims.UserID
		}
	}
	return sess
}

// setSession installs sess unless SignOut ran since epoch was read. The
// refresh token is persisted under the lock so a concurrent SignOut cannot
// interleave between the check and the write.
func (c *Client) setSession(epoch uint64, sess *Session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		c.logger.Debug(log.EventStaleResult, zap.String("op", "set_session"))
		return false
	}
	c.session = sess
	c.status = StatusAuthenticated

	if c.store != nil && sess.RefreshToken != "" {
		if err := c.store.SaveRefreshToken(sess.RefreshToken, sess.User.Email); err != nil {
			c.logger.Error(log.EventSignIn, fmt.Errorf("saving refresh token: %w", err))
		}
	}
	return true
}

func (c *Client) setAnonymous() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = nil
	c.status = StatusAnonymous
}

// post sends body as JSON to path and decodes a successful response into out.
// Non-2xx responses become *Error.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		if e.Status == 0 {
			e.Status = resp.StatusCode
		}
		return &Error{Status: e.Status, Code: e.Error, Message: e.Message}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	// Sign-out answers with a bare "OK".
	if !json.Valid(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
