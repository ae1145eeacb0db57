package sse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/fwojciec/chat"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Interface compliance checks.
var (
	_ chat.Transport = (*Client)(nil)
	_ chat.Channel   = (*channel)(nil)
)

// Client implements [chat.Transport] by POSTing the request as JSON and
// reading the response body as an event stream.
type Client struct {
	url        string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a Client posting to url. The default HTTP client is
// instrumented with OpenTelemetry.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Open sends req and returns a channel over the response stream.
func (c *Client) Open(ctx context.Context, req chat.Request) (chat.Channel, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", ContentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sse: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sse: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return NewChannel(resp.Body), nil
}

// channel adapts a Reader over a response body to [chat.Channel].
type channel struct {
	body   io.ReadCloser
	reader *Reader

	mu     sync.Mutex
	closed bool
}

// NewChannel returns a [chat.Channel] reading events from body. Close closes
// body.
func NewChannel(body io.ReadCloser) chat.Channel {
	return &channel{body: body, reader: NewReader(body)}
}

// Next returns the next frame, io.EOF at the end of the body.
func (c *channel) Next() (chat.Frame, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return chat.Frame{}, fmt.Errorf("sse: %w", chat.ErrChannelClosed)
	}
	return c.reader.Read()
}

// Close closes the response body. It is safe to call more than once.
func (c *channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.body.Close()
}
