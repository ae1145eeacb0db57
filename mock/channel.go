package mock

import (
	"io"
	"sync"

	"github.com/fwojciec/chat"
)

// Channel is a test double for chat.Channel.
// NextFn panics when nil to catch missing setup. CloseFn is nil-safe because
// callers commonly defer Close.
type Channel struct {
	NextFn  func() (chat.Frame, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (c *Channel) Next() (chat.Frame, error) {
	return c.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (c *Channel) Close() error {
	if c.CloseFn == nil {
		return nil
	}
	return c.CloseFn()
}

// Frames returns a Channel that delivers frames in order and then returns
// end on every subsequent call. A nil end means io.EOF.
func Frames(end error, frames ...chat.Frame) *Channel {
	if end == nil {
		end = io.EOF
	}
	var mu sync.Mutex
	i := 0
	return &Channel{
		NextFn: func() (chat.Frame, error) {
			mu.Lock()
			defer mu.Unlock()
			if i >= len(frames) {
				return chat.Frame{}, end
			}
			f := frames[i]
			i++
			return f, nil
		},
	}
}

// Data returns a default-channel frame carrying payload.
func Data(payload string) chat.Frame {
	return chat.Frame{Data: []byte(payload)}
}

// Error returns an error-channel frame carrying payload.
func Error(payload string) chat.Frame {
	return chat.Frame{Event: chat.FrameError, Data: []byte(payload)}
}
