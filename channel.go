package chat

import "context"

// FrameError is the frame event name of the error channel.
const FrameError = "error"

// Frame is one raw event as delivered by a push channel. Event is the
// channel-level event name ("" for the default message channel) and Data is
// the undecoded payload.
type Frame struct {
	Event string
	Data  []byte
}

// Channel is a pull-based push channel. Next blocks until the next frame is
// available. It returns io.EOF when the far end closes the channel normally
// and any other error on transport failure. After Close, Next returns an
// error wrapping ErrChannelClosed.
type Channel interface {
	Next() (Frame, error)
	Close() error
}

// Transport opens a push channel for one request. The request body is sent
// once; the returned channel delivers the response events. Cancelling ctx
// aborts the channel.
type Transport interface {
	Open(ctx context.Context, req Request) (Channel, error)
}
