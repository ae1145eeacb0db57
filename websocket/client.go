package websocket

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fwojciec/chat"
	"github.com/gorilla/websocket"
)

// Interface compliance checks.
var (
	_ chat.Transport = (*Client)(nil)
	_ chat.Channel   = (*channel)(nil)
)

const closeTimeout = time.Second

// Client implements [chat.Transport] over a WebSocket endpoint.
type Client struct {
	url    string
	dialer *websocket.Dialer
}

// Option configures a [Client].
type Option func(*Client)

// WithDialer sets a custom dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// NewClient returns a Client dialing url (ws:// or wss://).
func NewClient(url string, opts ...Option) *Client {
	c := &Client{url: url, dialer: websocket.DefaultDialer}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open dials the endpoint, sends req as the first message and returns a
// channel over the frames that follow. Cancelling ctx closes the connection.
func (c *Client) Open(ctx context.Context, req chat.Request) (chat.Channel, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket: %w", err)
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("websocket: %w", err)
	}

	ch := &channel{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-ch.done:
		}
	}()
	return ch, nil
}

type channel struct {
	conn *websocket.Conn
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

// Next reads the next envelope. A normal close from the server is io.EOF.
func (c *channel) Next() (chat.Frame, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return chat.Frame{}, fmt.Errorf("websocket: %w", chat.ErrChannelClosed)
	}

	for {
		typ, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return chat.Frame{}, io.EOF
			}
			return chat.Frame{}, fmt.Errorf("websocket: %w", err)
		}
		if typ != websocket.TextMessage {
			continue
		}
		env, err := decodeEnvelope(msg)
		if err != nil {
			// An unreadable envelope is delivered as an undecodable frame so
			// the session drops it and keeps reading.
			return chat.Frame{Data: msg}, nil
		}
		return chat.Frame{Event: env.Event, Data: env.Data}, nil
	}
}

// Close sends a close message and closes the connection.
func (c *channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	// The peer may already be gone; the close below is what matters.
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("websocket: %w", err)
	}
	return nil
}
