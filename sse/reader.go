package sse

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/chat"
)

const maxLineSize = 1 << 20

// Reader parses SSE events from r into chat frames.
type Reader struct {
	scanner *bufio.Scanner
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Reader{scanner: s}
}

// Read reads lines until a complete event is assembled. Multiple data lines
// are joined with a newline. Comments, id and retry fields are ignored.
// Returns io.EOF when the input ends, discarding any unterminated event.
func (r *Reader) Read() (chat.Frame, error) {
	var event string
	var data strings.Builder
	hasData := false

	for r.scanner.Scan() {
		line := r.scanner.Text()

		if line == "" {
			if hasData {
				return chat.Frame{Event: event, Data: []byte(data.String())}, nil
			}
			// Dispatch without data resets the event name.
			event = ""
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			event = value
		case "data":
			if hasData {
				data.WriteByte('\n')
			}
			data.WriteString(value)
			hasData = true
		}
	}

	if err := r.scanner.Err(); err != nil {
		return chat.Frame{}, fmt.Errorf("sse: %w", err)
	}
	// An event not terminated by a blank line was cut off and is discarded.
	return chat.Frame{}, io.EOF
}
