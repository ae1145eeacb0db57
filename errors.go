package chat

import "errors"

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrMalformed indicates an event payload failed structural validation.
	// Malformed frames are dropped; they never abort a session.
	ErrMalformed = errors.New("malformed event")

	// ErrTransport indicates the push channel failed. Terminal for a session.
	ErrTransport = errors.New("transport error")

	// ErrServerReported indicates the far end sent an explicit error event.
	ErrServerReported = errors.New("server reported error")

	// ErrInterrupted indicates the channel closed before the assistant
	// message was completed.
	ErrInterrupted = errors.New("stream interrupted")

	// ErrSessionBusy indicates Send was called while another Send is running
	// on the same session.
	ErrSessionBusy = errors.New("session busy")

	// ErrChannelClosed indicates an operation on a closed channel.
	ErrChannelClosed = errors.New("channel closed")
)
