// Package sse implements the server-sent events encoding of chat frames and
// a chat.Transport that opens a frame channel with an HTTP POST.
package sse

// ContentType is the media type of an SSE response body.
const ContentType = "text/event-stream"
