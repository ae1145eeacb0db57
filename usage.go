package chat

// Usage tracks token consumption reported by the server.
//
// InputTokens arrives with message_start; OutputTokens is cumulative and is
// overwritten by each message_delta.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
