package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire types for inbound event payloads. Pointer fields distinguish absent
// from zero so required fields can be checked.

type wireHeader struct {
	Type *string `json:"type"`
}

type wireMessageStart struct {
	Message json.RawMessage `json:"message"`
}

type wireContentBlockStart struct {
	ContentBlock *wireContentBlock `json:"content_block"`
}

type wireContentBlockDelta struct {
	Delta *wireDelta `json:"delta"`
}

type wireMessageDelta struct {
	Delta *wireDelta `json:"delta"`
	Usage *wireUsage `json:"usage"`
}

type wireMessage struct {
	ID    string    `json:"id"`
	Usage wireUsage `json:"usage"`
}

type wireContentBlock struct {
	Type *string `json:"type"`
	Text *string `json:"text"`
}

type wireDelta struct {
	Type       string  `json:"type"`
	Text       *string `json:"text"`
	StopReason *string `json:"stop_reason"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type wireErrorDetail struct {
	Type    string  `json:"type"`
	Message *string `json:"message"`
}

type wireErrorPayload struct {
	Message *string          `json:"message"`
	Error   *wireErrorDetail `json:"error"`
}

// Decode parses one event payload into an [Event]. It has no side effects.
//
// The payload must be a JSON object with a string "type" discriminator.
// Fields required by a known type must be present and well-typed; otherwise
// the returned error wraps [ErrMalformed]. Unrecognized types decode to
// [EventUnknown] without error.
func Decode(data []byte) (Event, error) {
	var h wireHeader
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if h.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	switch typ := *h.Type; typ {
	case "message_start":
		var w wireMessageStart
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: message_start: %v", ErrMalformed, err)
		}
		// The message object only carries metadata; absent or null means none.
		if isAbsent(w.Message) {
			return EventMessageStart{}, nil
		}
		if !isObject(w.Message) {
			return nil, fmt.Errorf("%w: message_start message is not an object", ErrMalformed)
		}
		var m wireMessage
		if err := json.Unmarshal(w.Message, &m); err != nil {
			return nil, fmt.Errorf("%w: message_start: %v", ErrMalformed, err)
		}
		return EventMessageStart{ID: m.ID, InputTokens: m.Usage.InputTokens}, nil

	case "content_block_start":
		var w wireContentBlockStart
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: content_block_start: %v", ErrMalformed, err)
		}
		if w.ContentBlock == nil || w.ContentBlock.Type == nil {
			return nil, fmt.Errorf("%w: content_block_start without content_block.type", ErrMalformed)
		}
		evt := EventContentBlockStart{BlockType: *w.ContentBlock.Type}
		if w.ContentBlock.Text != nil {
			evt.Text = *w.ContentBlock.Text
		}
		return evt, nil

	case "content_block_delta":
		var w wireContentBlockDelta
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: content_block_delta: %v", ErrMalformed, err)
		}
		if w.Delta == nil {
			return nil, fmt.Errorf("%w: content_block_delta without delta", ErrMalformed)
		}
		var evt EventContentBlockDelta
		if w.Delta.Text != nil {
			evt.Text = *w.Delta.Text
		}
		return evt, nil

	case "content_block_stop":
		return EventContentBlockStop{}, nil

	case "message_delta":
		var w wireMessageDelta
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("%w: message_delta: %v", ErrMalformed, err)
		}
		if w.Delta == nil {
			return nil, fmt.Errorf("%w: message_delta without delta", ErrMalformed)
		}
		var evt EventMessageDelta
		if w.Delta.StopReason != nil {
			evt.StopReason = *w.Delta.StopReason
		}
		if w.Usage != nil {
			evt.OutputTokens = w.Usage.OutputTokens
		}
		return evt, nil

	case "message_stop":
		return EventMessageStop{}, nil

	case "error":
		return DecodeError(data)

	default:
		return EventUnknown{Type: typ}, nil
	}
}

// DecodeError parses an error-channel payload. It accepts {"message": "..."}
// as well as the nested {"error": {"message": "..."}} form.
func DecodeError(data []byte) (Event, error) {
	var w wireErrorPayload
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: error payload: %v", ErrMalformed, err)
	}
	switch {
	case w.Message != nil:
		return EventError{Message: *w.Message}, nil
	case w.Error != nil && w.Error.Message != nil:
		return EventError{Message: *w.Error.Message}, nil
	default:
		return nil, fmt.Errorf("%w: error payload without message", ErrMalformed)
	}
}

// DecodeFrame decodes a transport frame. Frames on the "error" event channel
// carry error payloads; all other frames carry stream events.
func DecodeFrame(f Frame) (Event, error) {
	if f.Event == FrameError {
		return DecodeError(f.Data)
	}
	return Decode(f.Data)
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func isObject(raw json.RawMessage) bool {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{':
			return true
		default:
			return false
		}
	}
	return false
}
