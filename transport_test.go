package credora

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

func newWSServer(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWebSocketDialer_RoundTrip(t *testing.T) {
	endpoint := newWSServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusInternalError, "")

		ctx := r.Context()
		hello := map[string]string{"type": "hello", "token": r.URL.Query().Get("token")}
		if err := wsjson.Write(ctx, c, hello); err != nil {
			return
		}
		for {
			var v any
			if err := wsjson.Read(ctx, c, &v); err != nil {
				return
			}
			if err := wsjson.Write(ctx, c, map[string]any{"type": "echo", "payload": v}); err != nil {
				return
			}
		}
	})

	nc := NewNotificationChannel(&ChannelConfig{Endpoint: endpoint, Logger: quietLogger()})
	defer nc.Disconnect()

	var mu sync.Mutex
	var messages []map[string]any
	nc.Subscribe(EventMessage, func(p any) {
		mu.Lock()
		messages = append(messages, p.(map[string]any))
		mu.Unlock()
	})
	received := func(n int) func() bool {
		return func() bool {
			mu.Lock()
			defer mu.Unlock()
			return len(messages) >= n
		}
	}

	nc.Connect("secret-token")
	require.Eventually(t, received(1), waitFor, tick)
	require.Equal(t, StateOpen, nc.State())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, nc.Send(ctx, map[string]int{"foo": 1}))
	require.Eventually(t, received(2), waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "hello", messages[0]["type"])
	assert.Equal(t, "secret-token", messages[0]["token"])
	assert.Equal(t, "echo", messages[1]["type"])
	assert.Equal(t, map[string]any{"foo": float64(1)}, messages[1]["payload"])
}

func TestWebSocketDialer_PeerNormalClose(t *testing.T) {
	var accepted atomic.Int32
	endpoint := newWSServer(t, func(w http.ResponseWriter, r *http.Request) {
		if accepted.Load() > 0 {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		accepted.Add(1)
		c.Close(websocket.StatusNormalClosure, "bye")
	})

	nc := NewNotificationChannel(&ChannelConfig{
		Endpoint:             endpoint,
		MaxReconnectAttempts: 2,
		ReconnectDelay:       10 * time.Millisecond,
		Logger:               quietLogger(),
	})
	defer nc.Disconnect()

	var connected, disconnected, errored atomic.Int32
	nc.Subscribe(EventConnected, func(any) { connected.Add(1) })
	nc.Subscribe(EventDisconnected, func(any) { disconnected.Add(1) })
	nc.Subscribe(EventError, func(any) { errored.Add(1) })

	nc.Connect("tok")

	require.Eventually(t, func() bool {
		return disconnected.Load() == 3 && nc.State() == StateIdle
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), accepted.Load())
	assert.Equal(t, int32(1), connected.Load())
	// Only the two refused reconnects report errors; the normal close does not.
	assert.Equal(t, int32(2), errored.Load())
	assert.Equal(t, 2, nc.ReconnectAttempts())
}

func TestWebSocketDialer_HandshakeRejected(t *testing.T) {
	endpoint := newWSServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	})

	nc := NewNotificationChannel(&ChannelConfig{
		Endpoint:             endpoint,
		MaxReconnectAttempts: -1,
		Logger:               quietLogger(),
	})
	defer nc.Disconnect()

	errs := make(chan error, 1)
	nc.Subscribe(EventError, func(p any) {
		if err, ok := p.(error); ok {
			select {
			case errs <- err:
			default:
			}
		}
	})

	nc.Connect("bad")

	select {
	case err := <-errs:
		assert.ErrorContains(t, err, "websocket dial")
	case <-time.After(waitFor):
		t.Fatal("expected an error event")
	}
	require.Eventually(t, func() bool { return nc.State() == StateIdle }, waitFor, tick)
}

func TestWebSocketDialer_ClientDisconnect(t *testing.T) {
	serverDone := make(chan websocket.StatusCode, 1)
	endpoint := newWSServer(t, func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusInternalError, "")
		_, _, err = c.Read(r.Context())
		serverDone <- websocket.CloseStatus(err)
	})

	nc := NewNotificationChannel(&ChannelConfig{Endpoint: endpoint, Logger: quietLogger()})
	nc.Connect("tok")
	require.Eventually(t, func() bool { return nc.State() == StateOpen }, waitFor, tick)

	nc.Disconnect()

	select {
	case code := <-serverDone:
		assert.Equal(t, websocket.StatusNormalClosure, code)
	case <-time.After(waitFor):
		t.Fatal("server never saw the close")
	}
	assert.Equal(t, StateIdle, nc.State())
}
