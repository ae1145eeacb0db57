package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fwojciec/chat"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Upgrader accepts WebSocket connections from chat clients.
type Upgrader struct {
	upgrader websocket.Upgrader
}

// UpgraderOption configures an [Upgrader].
type UpgraderOption func(*Upgrader)

// WithCheckOrigin sets the origin check. The gorilla default rejects
// cross-origin requests.
func WithCheckOrigin(fn func(r *http.Request) bool) UpgraderOption {
	return func(u *Upgrader) { u.upgrader.CheckOrigin = fn }
}

// NewUpgrader returns an Upgrader.
func NewUpgrader(opts ...UpgraderOption) *Upgrader {
	u := &Upgrader{}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Accept upgrades the request. On failure the response has already been
// written.
func (u *Upgrader) Accept(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	conn, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: %w", err)
	}
	return &Conn{ID: uuid.NewString(), conn: conn}, nil
}

// Conn is the server side of one chat connection.
type Conn struct {
	ID   string
	conn *websocket.Conn
}

// ReadRequest reads the request body sent as the first client message.
func (c *Conn) ReadRequest() (chat.Request, error) {
	var req chat.Request
	if err := c.conn.ReadJSON(&req); err != nil {
		return chat.Request{}, fmt.Errorf("websocket: %w", err)
	}
	return req, nil
}

// Watch returns a context that is cancelled when the client closes the
// connection or it drops. It takes over reading: call it after ReadRequest
// and read nothing afterwards. Client messages that arrive later are
// discarded.
func (c *Conn) Watch(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		defer cancel()
		for {
			if _, _, err := c.conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return ctx, cancel
}

// WriteFrame sends one frame.
func (c *Conn) WriteFrame(event string, data []byte) error {
	msg, err := encodeEnvelope(event, data)
	if err != nil {
		return fmt.Errorf("websocket: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		return fmt.Errorf("websocket: %w", err)
	}
	return nil
}

// Close ends the stream with a normal close and closes the connection.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("websocket: %w", err)
	}
	return nil
}
