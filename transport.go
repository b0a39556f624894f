package credora

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nhooyr.io/websocket"
)

// ============================================================================
// Transport
// ============================================================================

// Dialer opens one transport session to a URL.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Conn is a single duplex transport session carrying whole text frames.
type Conn interface {
	// Read blocks until the next inbound frame arrives or the session ends.
	// A normal close by the peer is reported as ErrSessionClosed.
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

const (
	DefaultHandshakeTimeout = 15 * time.Second
	defaultReadLimit        = 1 << 20
)

// WebSocketDialer dials WebSocket sessions.
type WebSocketDialer struct {
	HTTPClient       *http.Client
	HTTPHeader       http.Header
	HandshakeTimeout time.Duration
	ReadLimit        int64
}

// Dial performs the WebSocket handshake against url.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		HTTPClient: d.HTTPClient,
		HTTPHeader: d.HTTPHeader,
	})
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	limit := d.ReadLimit
	if limit == 0 {
		limit = defaultReadLimit
	}
	conn.SetReadLimit(limit)
	return &wsConn{conn: conn}, nil
}

type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		switch websocket.CloseStatus(err) {
		case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			return nil, fmt.Errorf("%w: %v", ErrSessionClosed, err)
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "client disconnect")
}
