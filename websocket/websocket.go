// Package websocket carries chat frames over a WebSocket connection. Each
// frame is one JSON text message {"event": ..., "data": ...}; the first
// message sent by the client is the request body.
package websocket

import (
	"encoding/json"
	"fmt"
)

// envelope is the wire form of one frame.
type envelope struct {
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data"`
}

func encodeEnvelope(event string, data []byte) ([]byte, error) {
	raw := json.RawMessage(data)
	if !json.Valid(data) {
		// Carry non-JSON payloads as a string so the envelope stays valid.
		s, err := json.Marshal(string(data))
		if err != nil {
			return nil, err
		}
		raw = s
	}
	return json.Marshal(envelope{Event: event, Data: raw})
}

func decodeEnvelope(msg []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		return envelope{}, fmt.Errorf("websocket: invalid envelope: %w", err)
	}
	return env, nil
}
