// Package graphql wraps the Hasura GraphQL client: queries and mutations
// over HTTP, subscriptions over the graphql-transport-ws WebSocket protocol.
// Every request carries a bearer token fetched from a TokenSource at the
// time it is sent.
package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gql "github.com/hasura/go-graphql-client"

	"github.com/berth-dev/threadline/internal/log"
)

// TokenSource supplies the bearer token attached to each request.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Request is a GraphQL operation.
type Request struct {
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
}

// Errors is the errors list of a GraphQL response.
type Errors = gql.Errors

// HTTPError is returned for non-2xx responses without a GraphQL body.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("graphql endpoint returned %d", e.StatusCode)
	}
	return fmt.Sprintf("graphql endpoint returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	Endpoint   string
	WSEndpoint string // derived from Endpoint when empty
	Tokens     TokenSource
	HTTPClient *http.Client
	Logger     *log.Logger

	// MaxReconnects bounds consecutive failed subscription reconnects.
	MaxReconnects int
	// AckTimeout bounds the wait for connection_ack.
	AckTimeout time.Duration
	// ReconnectDelay is the first reconnect backoff; it doubles per failure.
	ReconnectDelay time.Duration
}

// Client executes GraphQL operations against one endpoint.
type Client struct {
	gql           *gql.Client
	wsEndpoint    string
	tokens        TokenSource
	http          *http.Client
	logger        *log.Logger
	maxReconnects int
	ackTimeout    time.Duration
	reconnectBase time.Duration
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	c := &Client{
		wsEndpoint:    opts.WSEndpoint,
		tokens:        opts.Tokens,
		http:          opts.HTTPClient,
		logger:        opts.Logger,
		maxReconnects: opts.MaxReconnects,
		ackTimeout:    opts.AckTimeout,
		reconnectBase: opts.ReconnectDelay,
	}
	if c.wsEndpoint == "" {
		c.wsEndpoint = WebSocketURL(opts.Endpoint)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.logger == nil {
		c.logger = log.Nop()
	}
	if c.maxReconnects <= 0 {
		c.maxReconnects = 5
	}
	if c.ackTimeout <= 0 {
		c.ackTimeout = 10 * time.Second
	}
	c.gql = gql.NewClient(opts.Endpoint, bearerDoer{http: c.http})
	return c
}

// WebSocketURL derives the subscription URL from an HTTP endpoint.
func WebSocketURL(endpoint string) string {
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	default:
		return endpoint
	}
}

// Do executes a query or mutation and decodes the data field into out.
// A response carrying GraphQL errors returns Errors even when partial data
// is present.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("access token: %w", err)
		}
		ctx = context.WithValue(ctx, tokenKey{}, token)
	}

	var opts []gql.Option
	if req.OperationName != "" {
		opts = append(opts, gql.OperationName(req.OperationName))
	}
	data, err := c.gql.ExecRaw(ctx, req.Query, req.Variables, opts...)
	if err != nil {
		if req.OperationName != "" {
			return fmt.Errorf("graphql %s: %w", req.OperationName, err)
		}
		return err
	}

	if out == nil {
		return nil
	}
	if len(data) == 0 || string(data) == "null" {
		return errors.New("graphql response has no data")
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}

type tokenKey struct{}

// bearerDoer attaches the token Do placed on the request context and turns
// non-2xx responses without a JSON body into HTTPError.
type bearerDoer struct {
	http *http.Client
}

func (d bearerDoer) Do(req *http.Request) (*http.Response, error) {
	if token, ok := req.Context().Value(tokenKey{}).(string); ok && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	raw, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if json.Valid(raw) {
		resp.Body = io.NopCloser(bytes.NewReader(raw))
		return resp, nil
	}
	return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
