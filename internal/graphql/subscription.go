package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gql "github.com/hasura/go-graphql-client"
	"go.uber.org/zap"

	"github.com/berth-dev/threadline/internal/log"
)

// Event is one delivery from a subscription.
type Event struct {
	Data         json.RawMessage
	Err          error
	Reconnecting bool
}

// ErrSubscriptionClosed is delivered when the reconnect budget is spent.
var ErrSubscriptionClosed = errors.New("subscription closed after repeated connection failures")

// permanentError marks failures that reconnecting cannot fix, such as the
// server rejecting the operation itself.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Subscribe starts req as a live subscription. Results are delivered on the
// returned channel until ctx is cancelled, the server completes the
// operation, or the socket fails more than MaxReconnects times in a row.
// The channel is closed when the subscription ends. A fresh access token is
// fetched for every (re)connect.
func (c *Client) Subscribe(ctx context.Context, req Request) <-chan Event {
	out := make(chan Event, 16)
	go func() {
		defer close(out)
		c.runSubscription(ctx, req, out)
	}()
	return out
}

func (c *Client) runSubscription(ctx context.Context, req Request, out chan<- Event) {
	breaker := NewCircuitBreaker(c.maxReconnects, c.reconnectBase)
	for {
		err := c.subscribeOnce(ctx, req, out, breaker)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// Server sent complete.
			return
		}

		var perm permanentError
		if errors.As(err, &perm) {
			deliver(ctx, out, Event{Err: perm.err})
			return
		}

		delay := breaker.RecordFailure()
		if breaker.ShouldStop() {
			c.logger.Error(log.EventSubscriptionStopped, err, zap.Int("failures", breaker.Failures()))
			deliver(ctx, out, Event{Err: fmt.Errorf("%w: %v", ErrSubscriptionClosed, err)})
			return
		}

		c.logger.Event(log.EventSubscriptionReconnect, zap.Int("attempt", breaker.Failures()), zap.Duration("delay", delay), zap.Error(err))
		if !deliver(ctx, out, Event{Err: err, Reconnecting: true}) {
			return
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// subscribeOnce runs one socket's lifetime on its own subscription client.
// Reconnecting is left to runSubscription, so any connection error ends the
// client. It returns nil when the server completes the operation.
func (c *Client) subscribeOnce(ctx context.Context, req Request, out chan<- Event, breaker *CircuitBreaker) error {
	params := map[string]any{}
	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return fmt.Errorf("access token: %w", err)
		}
		params["headers"] = map[string]any{"Authorization": "Bearer " + token}
	}

	var connErr, final error
	sc := gql.NewSubscriptionClient(c.wsEndpoint).
		WithProtocol(gql.GraphQLWS).
		WithWebSocketOptions(gql.WebsocketOptions{HTTPClient: c.http}).
		WithConnectionParams(params).
		WithTimeout(c.ackTimeout).
		WithRetryTimeout(c.ackTimeout).
		WithExitWhenNoSubscription(true).
		WithLog(func(args ...any) {
			c.logger.Debug(log.EventSubscriptionTrace, zap.String("detail", fmt.Sprint(args...)))
		}).
		OnConnected(func() {
			c.logger.Event(log.EventSubscriptionStarted, zap.String("operation", req.OperationName))
		}).
		OnError(func(_ *gql.SubscriptionClient, err error) error {
			connErr = err
			return err
		})

	handler := func(data []byte, err error) error {
		if err != nil {
			final = permanentError{err}
			return gql.ErrSubscriptionStopped
		}
		breaker.RecordSuccess()
		if !deliver(ctx, out, Event{Data: json.RawMessage(data)}) {
			return gql.ErrSubscriptionStopped
		}
		return nil
	}
	if _, err := sc.Exec(req.Query, req.Variables, handler); err != nil {
		return permanentError{fmt.Errorf("register subscription: %w", err)}
	}

	stop := context.AfterFunc(ctx, func() { _ = sc.Close() })
	defer stop()

	runErr := sc.Run()
	_ = sc.Close()

	switch {
	case ctx.Err() != nil:
		c.logger.Event(log.EventSubscriptionStopped, zap.String("operation", req.OperationName))
		return nil
	case final != nil:
		return final
	case runErr != nil:
		return fmt.Errorf("subscription %s: %w", c.wsEndpoint, runErr)
	case connErr != nil:
		return fmt.Errorf("subscription %s: %w", c.wsEndpoint, connErr)
	}
	return nil
}

// deliver sends ev unless ctx is cancelled first.
func deliver(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
