package sse

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
)

// Writer encodes chat frames as SSE events. When the underlying writer is an
// http.Flusher each frame is flushed as soon as it is written.
type Writer struct {
	w       io.Writer
	flusher http.Flusher
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	f, _ := w.(http.Flusher)
	return &Writer{w: w, flusher: f}
}

// SetHeaders prepares an HTTP response for streaming events.
func SetHeaders(h http.Header) {
	h.Set("Content-Type", ContentType)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// WriteFrame writes one event. A non-empty event name is written as an
// event line; data is split on newlines into data lines.
func (w *Writer) WriteFrame(event string, data []byte) error {
	var buf bytes.Buffer
	if event != "" {
		fmt.Fprintf(&buf, "event: %s\n", event)
	}
	for _, line := range bytes.Split(data, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	if _, err := w.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("sse: %w", err)
	}
	if w.flusher != nil {
		w.flusher.Flush()
	}
	return nil
}
