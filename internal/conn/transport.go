// internal/conn/transport.go
package conn

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	maxFrameSize     = 64 * 1024
)

// Conn is one established transport connection. ReadMessage blocks until a
// frame arrives or the connection dies.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(payload []byte) error
	Close() error
}

// Dialer establishes transport connections. The Manager holds exactly one
// Dialer and constructs a fresh Conn for every connect cycle.
type Dialer interface {
	Dial(url string) (Conn, error)
}

// WebSocketDialer is the production Dialer, backed by gorilla/websocket.
type WebSocketDialer struct {
	dialer websocket.Dialer
}

// NewWebSocketDialer returns a dialer with a bounded handshake timeout.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{
		dialer: websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

func (d *WebSocketDialer) Dial(url string) (Conn, error) {
	c, _, err := d.dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	c.SetReadLimit(maxFrameSize)
	return &wsConn{c: c}, nil
}

type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := w.c.ReadMessage()
	return data, err
}

func (w *wsConn) WriteMessage(payload []byte) error {
	return w.c.WriteMessage(websocket.TextMessage, payload)
}

func (w *wsConn) Close() error {
	return w.c.Close()
}

// isCleanClose reports whether the peer shut the connection down cleanly.
// Clean closes do not trigger reconnection.
func isCleanClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
