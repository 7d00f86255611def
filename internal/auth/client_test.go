package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func signToken(t *testing.T, userID string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
		hasuraClaimsKey: map[string]any{
			"x-hasura-user-id": userID,
		},
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type memStore struct {
	mu    sync.Mutex
	token string
	email string
}

func (m *memStore) LoadRefreshToken() (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.email, nil
}

func (m *memStore) SaveRefreshToken(token, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.email = token, email
	return nil
}

func (m *memStore) ClearRefreshToken() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.email = "", ""
	return nil
}

// fakeProvider mimics the identity provider's email/password endpoints.
type fakeProvider struct {
	t        *testing.T
	accounts map[string]string
	exp      time.Time
	paths    []string
	mu       sync.Mutex

	// refreshExp is the expiry of refreshed tokens; zero means exp.
	refreshExp time.Time
	// singleUse rejects a refresh token the second time it is presented
	// and rotates it on every refresh.
	singleUse bool
	used      map[string]bool
	issued    int
	// tokenSeen is signalled when /token is entered; tokenGate holds the
	// response until closed.
	tokenSeen chan struct{}
	tokenGate chan struct{}
}

func (p *fakeProvider) session(email string) map[string]any {
	return map[string]any{
		"accessToken":          signToken(p.t, "u-"+email, p.exp),
		"accessTokenExpiresIn": 900,
		"refreshToken":         "refresh-" + email,
		"user":                 map[string]any{"id": "u-" + email, "email": email},
	}
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.paths = append(p.paths, r.URL.Path)
	p.mu.Unlock()

	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/signin/email-password":
		if pw, ok := p.accounts[body["email"]]; !ok || pw != body["password"] {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"Incorrect email or password","error":"invalid-email-password"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"session": p.session(body["email"])})
	case "/signup/email-password":
		p.accounts[body["email"]] = body["password"]
		_, _ = w.Write([]byte(`{"session":null}`))
	case "/token":
		if p.tokenSeen != nil {
			p.tokenSeen <- struct{}{}
		}
		if p.tokenGate != nil {
			<-p.tokenGate
		}
		if !p.redeem(body["refreshToken"]) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"Invalid or expired refresh token","error":"invalid-refresh-token"}`))
			return
		}
		sess := p.session("ada@example.com")
		if !p.refreshExp.IsZero() {
			sess["accessToken"] = signToken(p.t, "u-ada@example.com", p.refreshExp)
		}
		if p.singleUse {
			p.mu.Lock()
			p.issued++
			sess["refreshToken"] = fmt.Sprintf("rt-%d", p.issued)
			p.mu.Unlock()
		}
		_ = json.NewEncoder(w).Encode(sess)
	case "/signout":
		_, _ = w.Write([]byte("OK"))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *fakeProvider) redeem(token string) bool {
	if token == "revoked" {
		return false
	}
	if !p.singleUse {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.used[token] {
		return false
	}
	p.used[token] = true
	return true
}

func (p *fakeProvider) calls(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, got := range p.paths {
		if got == path {
			n++
		}
	}
	return n
}

func newTestClient(t *testing.T, store TokenStore) (*Client, *fakeProvider) {
	t.Helper()
	return newTestClientWith(t, store, nil)
}

// newTestClientWith lets a test configure the provider before it starts
// serving.
func newTestClientWith(t *testing.T, store TokenStore, configure func(*fakeProvider)) (*Client, *fakeProvider) {
	t.Helper()
	p := &fakeProvider{
		t:        t,
		accounts: map[string]string{"ada@example.com": "hunter22"},
		exp:      now.Add(15 * time.Minute),
		used:     make(map[string]bool),
	}
	if configure != nil {
		configure(p)
	}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, Store: store, Now: func() time.Time { return now }})
	return c, p
}

func TestSignInInvalidCredentials(t *testing.T) {
	c, _ := newTestClient(t, nil)

	_, err := c.SignIn(context.Background(), "nobody@example.com", "x")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	text, toast := SignInFailure(err)
	require.Equal(t, "No account found. Please sign up first.", text)
	require.True(t, toast)
	require.Equal(t, StatusLoading, c.Status())
}

func TestSignInPersistsRefreshToken(t *testing.T) {
	store := &memStore{}
	c, _ := newTestClient(t, store)

	sess, err := c.SignIn(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)
	require.Equal(t, StatusAuthenticated, c.Status())
	require.Equal(t, "u-ada@example.com", c.User().ID)
	require.Equal(t, now.Add(15*time.Minute).Unix(), sess.ExpiresAt.Unix())

	token, email, _ := store.LoadRefreshToken()
	require.Equal(t, "refresh-ada@example.com", token)
	require.Equal(t, "ada@example.com", email)
}

func TestSignUpPendingVerification(t *testing.T) {
	c, p := newTestClient(t, nil)

	require.NoError(t, c.SignUp(context.Background(), "new@example.com", "pw123456"))
	require.NotEqual(t, StatusAuthenticated, c.Status())
	require.Equal(t, 1, p.calls("/signup/email-password"))
}

func TestRestore(t *testing.T) {
	t.Run("no stored token", func(t *testing.T) {
		c, p := newTestClient(t, &memStore{})
		status, err := c.Restore(context.Background())
		require.NoError(t, err)
		require.Equal(t, StatusAnonymous, status)
		require.Zero(t, p.calls("/token"))
	})

	t.Run("valid token", func(t *testing.T) {
		c, _ := newTestClient(t, &memStore{token: "stored", email: "ada@example.com"})
		status, err := c.Restore(context.Background())
		require.NoError(t, err)
		require.Equal(t, StatusAuthenticated, status)
		require.Equal(t, "ada@example.com", c.User().Email)
	})

	t.Run("revoked token is cleared", func(t *testing.T) {
		store := &memStore{token: "revoked", email: "ada@example.com"}
		c, _ := newTestClient(t, store)
		status, err := c.Restore(context.Background())
		require.Error(t, err)
		require.Equal(t, StatusAnonymous, status)
		token, _, _ := store.LoadRefreshToken()
		require.Empty(t, token)
	})
}

func TestAccessTokenRefreshesNearExpiry(t *testing.T) {
	c, p := newTestClient(t, nil)
	_, err := c.SignIn(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)

	_, err = c.AccessToken(context.Background())
	require.NoError(t, err)
	require.Zero(t, p.calls("/token"), "fresh token should not refresh")

	// Jump to 30s before expiry, inside the 60s margin.
	c.now = func() time.Time { return now.Add(15*time.Minute - 30*time.Second) }
	p.exp = now.Add(time.Hour)
	_, err = c.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, p.calls("/token"))
}

func TestAccessTokenWithoutSession(t *testing.T) {
	c, _ := newTestClient(t, nil)
	_, err := c.AccessToken(context.Background())
	require.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestSignOutClearsLocally(t *testing.T) {
	store := &memStore{}
	c, p := newTestClient(t, store)
	_, err := c.SignIn(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(context.Background()))
	require.Equal(t, StatusAnonymous, c.Status())
	require.Equal(t, 1, p.calls("/signout"))
	token, _, _ := store.LoadRefreshToken()
	require.Empty(t, token)
}

func TestSignOutClearsEvenWhenProviderUnreachable(t *testing.T) {
	store := &memStore{}
	c, _ := newTestClient(t, store)
	_, err := c.SignIn(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)

	c.baseURL = "http://127.0.0.1:1"
	require.Error(t, c.SignOut(context.Background()))
	require.Equal(t, StatusAnonymous, c.Status())
	token, _, _ := store.LoadRefreshToken()
	require.Empty(t, token)
}

func TestAccessTokenSharesConcurrentRefresh(t *testing.T) {
	c, p := newTestClientWith(t, &memStore{}, func(p *fakeProvider) {
		p.singleUse = true
		p.refreshExp = now.Add(time.Hour)
	})
	_, err := c.SignIn(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(15*time.Minute - 30*time.Second) }

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	tokens := make([]string, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tokens[i], errs[i] = c.AccessToken(context.Background())
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
	require.Equal(t, 1, p.calls("/token"))
}

func TestSignOutDiscardsInFlightRefresh(t *testing.T) {
	store := &memStore{}
	c, p := newTestClientWith(t, store, func(p *fakeProvider) {
		p.singleUse = true
		p.refreshExp = now.Add(time.Hour)
		p.tokenSeen = make(chan struct{}, 1)
		p.tokenGate = make(chan struct{})
	})
	_, err := c.SignIn(context.Background(), "ada@example.com", "hunter22")
	require.NoError(t, err)

	c.now = func() time.Time { return now.Add(15*time.Minute - 30*time.Second) }

	done := make(chan error, 1)
	go func() {
		_, err := c.AccessToken(context.Background())
		done <- err
	}()
	<-p.tokenSeen

	require.NoError(t, c.SignOut(context.Background()))
	close(p.tokenGate)

	require.ErrorIs(t, <-done, ErrNotAuthenticated)
	require.Equal(t, StatusAnonymous, c.Status())
	token, _, _ := store.LoadRefreshToken()
	require.Empty(t, token)
}
