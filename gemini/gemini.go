// Package gemini implements [chat.Transport] for the Google Gemini API.
//
// It wraps the google.golang.org/genai SDK. Response chunks are translated
// into the same message_start / content_block / message_stop frames the
// Anthropic API streams, so a session assembles both providers alike.
package gemini

const (
	defaultModel     = "gemini-2.5-flash"
	defaultMaxTokens = 8192
)
