package wsrouter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInput struct {
	Text string `json:"text"`
}

func newTestConn(t *testing.T, router *WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()
		router.ServeConn(context.Background(), conn)
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestServeConnDispatch(t *testing.T) {
	router := New()

	received := make(chan echoInput, 1)
	Handle(router, "ECHO", func(ctx context.Context, _ *websocket.Conn, input echoInput) error {
		assert.Equal(t, "ECHO", GetMessageTypeFromCtx(ctx))
		received <- input
		return nil
	})

	conn := newTestConn(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "ECHO",
		"payload": map[string]any{"text": "hello"},
	}))

	select {
	case input := <-received:
		assert.Equal(t, "hello", input.Text)
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestServeConnUnknownType(t *testing.T) {
	router := New()

	var mu sync.Mutex
	var got error
	router.OnError(func(_ context.Context, _ *websocket.Conn, err error) {
		mu.Lock()
		got = err
		mu.Unlock()
	})

	handled := make(chan struct{}, 1)
	Handle(router, "KNOWN", func(context.Context, *websocket.Conn, echoInput) error {
		handled <- struct{}{}
		return nil
	})

	conn := newTestConn(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "BOGUS"}))
	// read loop must survive the unknown type
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "KNOWN"}))

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("read loop did not survive unknown message type")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Error(t, got)
	assert.True(t, errors.Is(got, ErrUnknownMessageType))
}

func TestServeConnHandlerError(t *testing.T) {
	router := New()

	sentinel := errors.New("boom")
	Handle(router, "FAIL", func(context.Context, *websocket.Conn, echoInput) error {
		return sentinel
	})

	errs := make(chan error, 2)
	router.OnError(func(_ context.Context, _ *websocket.Conn, err error) {
		errs <- err
	})

	conn := newTestConn(t, router)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "FAIL"}))
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "FAIL"}))

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, sentinel)
		case <-time.After(time.Second):
			t.Fatal("error handler was not invoked")
		}
	}
}

func TestServeConnMiddlewareOrder(t *testing.T) {
	router := New()

	var mu sync.Mutex
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *websocket.Conn, payload any) error {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				return next(ctx, conn, payload)
			}
		}
	}
	router.Use(mw("first"))
	router.Use(mw("second"))

	done := make(chan struct{}, 1)
	Handle(router, "PING", func(context.Context, *websocket.Conn, echoInput) error {
		done <- struct{}{}
		return nil
	})

	conn := newTestConn(t, router)
	require.NoError(t, conn.WriteJSON(map[string]any{"type": "PING"}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, order)
}
