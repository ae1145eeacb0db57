package chat

import "time"

// Message is one role-tagged entry in a Transcript.
//
// User messages are created complete. Assistant messages are created by a
// message_start event and grow until message_stop marks them complete; after
// that they never change. An assistant message that stays incomplete after
// its session ended was interrupted.
type Message struct {
	ID         string
	Role       Role
	Content    string
	Complete   bool
	StopReason StopReason
	Usage      Usage
	Timestamp  time.Time
}

// Interrupted reports whether the message is an assistant message that never
// completed. Only meaningful once the session that produced it has ended.
func (m Message) Interrupted() bool {
	return m.Role == RoleAssistant && !m.Complete
}
