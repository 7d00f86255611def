package graphql

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/require"
)

// wsFrame is one graphql-transport-ws message as the server sees it.
type wsFrame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// fakeHasura serves one graphql-transport-ws connection per request and
// hands the subscribe id to script.
func fakeHasura(t *testing.T, authSeen chan<- string, script func(ctx context.Context, conn *websocket.Conn, id string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: []string{"graphql-transport-ws"}})
		if err != nil {
			return
		}
		defer func() { _ = conn.CloseNow() }()
		ctx := r.Context()

		var init wsFrame
		if err := wsjson.Read(ctx, conn, &init); err != nil || init.Type != "connection_init" {
			return
		}
		var payload struct {
			Headers map[string]string `json:"headers"`
		}
		_ = json.Unmarshal(init.Payload, &payload)
		if authSeen != nil {
			authSeen <- payload.Headers["Authorization"]
		}
		if err := wsjson.Write(ctx, conn, wsFrame{Type: "connection_ack"}); err != nil {
			return
		}

		for {
			var msg wsFrame
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return
			}
			switch msg.Type {
			case "ping":
				_ = wsjson.Write(ctx, conn, wsFrame{Type: "pong"})
			case "subscribe":
				script(ctx, conn, msg.ID)
				return
			}
		}
	}))
}

func next(ctx context.Context, conn *websocket.Conn, id, data string) {
	_ = wsjson.Write(ctx, conn, wsFrame{ID: id, Type: "next", Payload: json.RawMessage(`{"data":` + data + `}`)})
}

func collect(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	timeout := time.After(15 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatal("subscription did not close")
			return nil
		}
	}
}

func testClient(url string) *Client {
	return NewClient(Options{
		Endpoint:       url,
		WSEndpoint:     WebSocketURL(url),
		Tokens:         staticToken("tok"),
		MaxReconnects:  2,
		ReconnectDelay: time.Millisecond,
		AckTimeout:     time.Second,
	})
}

func TestSubscribeDeliversSnapshotsUntilComplete(t *testing.T) {
	authSeen := make(chan string, 1)
	srv := fakeHasura(t, authSeen, func(ctx context.Context, conn *websocket.Conn, id string) {
		next(ctx, conn, id, `{"messages":[{"id":"m1"}]}`)
		next(ctx, conn, id, `{"messages":[{"id":"m1"},{"id":"m2"}]}`)
		_ = wsjson.Write(ctx, conn, wsFrame{ID: id, Type: "complete"})
		// Wait for the client to hang up.
		_, _, _ = conn.Read(ctx)
	})
	defer srv.Close()

	events := collect(t, testClient(srv.URL).Subscribe(context.Background(), Request{Query: "subscription { messages { id } }"}))

	require.Equal(t, "Bearer tok", <-authSeen)
	require.Len(t, events, 2)
	require.NoError(t, events[0].Err)
	require.JSONEq(t, `{"messages":[{"id":"m1"}]}`, string(events[0].Data))
	require.JSONEq(t, `{"messages":[{"id":"m1"},{"id":"m2"}]}`, string(events[1].Data))
}

func TestSubscribeServerErrorIsFinal(t *testing.T) {
	srv := fakeHasura(t, nil, func(ctx context.Context, conn *websocket.Conn, id string) {
		_ = wsjson.Write(ctx, conn, wsFrame{ID: id, Type: "error", Payload: json.RawMessage(`[{"message":"permission denied"}]`)})
		_, _, _ = conn.Read(ctx)
	})
	defer srv.Close()

	events := collect(t, testClient(srv.URL).Subscribe(context.Background(), Request{Query: "subscription { messages { id } }"}))

	require.Len(t, events, 1)
	require.False(t, events[0].Reconnecting)
	require.ErrorContains(t, events[0].Err, "permission denied")
}

func TestSubscribeGivesUpAfterMaxReconnects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	events := collect(t, testClient(srv.URL).Subscribe(context.Background(), Request{Query: "subscription { messages { id } }"}))

	require.Len(t, events, 2)
	require.True(t, events[0].Reconnecting)
	require.False(t, events[1].Reconnecting)
	require.ErrorIs(t, events[1].Err, ErrSubscriptionClosed)
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	srv := fakeHasura(t, nil, func(ctx context.Context, conn *websocket.Conn, id string) {
		next(ctx, conn, id, `{"messages":[]}`)
		_, _, _ = conn.Read(ctx)
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	events := testClient(srv.URL).Subscribe(ctx, Request{Query: "subscription { messages { id } }"})

	select {
	case ev := <-events:
		require.NoError(t, ev.Err)
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot delivered")
	}
	cancel()
	require.Empty(t, collect(t, events))
}

func TestSubscribeStopsWithoutToken(t *testing.T) {
	c := NewClient(Options{Endpoint: "http://127.0.0.1:1", Tokens: failingToken{err: context.Canceled}, MaxReconnects: 1, ReconnectDelay: time.Millisecond})

	events := collect(t, c.Subscribe(context.Background(), Request{Query: "subscription { messages { id } }"}))

	require.NotEmpty(t, events)
	require.ErrorIs(t, events[len(events)-1].Err, ErrSubscriptionClosed)
}
