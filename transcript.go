package chat

import "time"

// Transcript is the ordered history of messages produced by a session.
// Insertion order is creation order. It is append-only: the only in-place
// mutation allowed is on the single open message, and only through the
// Assembler.
//
// A Transcript is not safe for concurrent mutation. Readers on other
// goroutines should work from the snapshots delivered by Session
// notifications.
type Transcript struct {
	messages []Message
	open     int // index of the open message, -1 when none
}

// NewTranscript returns an empty Transcript.
func NewTranscript() *Transcript {
	return &Transcript{open: -1}
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.messages) }

// Messages returns a copy of all messages.
func (t *Transcript) Messages() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// At returns the message at index i.
func (t *Transcript) At(i int) (Message, bool) {
	if i < 0 || i >= len(t.messages) {
		return Message{}, false
	}
	return t.messages[i], true
}

// Last returns the most recently created message.
func (t *Transcript) Last() (Message, bool) {
	return t.At(len(t.messages) - 1)
}

// Open returns the message currently receiving events, if any.
func (t *Transcript) Open() (Message, bool) {
	if t.open < 0 {
		return Message{}, false
	}
	return t.messages[t.open], true
}

// OpenIndex returns the index of the open message, or -1.
func (t *Transcript) OpenIndex() int { return t.open }

// appendUser appends a completed user message and returns its index.
// It does not touch the open message.
func (t *Transcript) appendUser(text string, now time.Time) int {
	t.messages = append(t.messages, Message{
		Role:      RoleUser,
		Content:   text,
		Complete:  true,
		Timestamp: now,
	})
	return len(t.messages) - 1
}

// appendOpen appends an empty incomplete assistant message and makes it the
// open message. Any previously open message stops receiving events.
func (t *Transcript) appendOpen(id string, now time.Time) int {
	t.messages = append(t.messages, Message{
		ID:        id,
		Role:      RoleAssistant,
		Timestamp: now,
	})
	t.open = len(t.messages) - 1
	return t.open
}

// openMessage returns a pointer to the open message for in-place mutation.
func (t *Transcript) openMessage() *Message {
	if t.open < 0 {
		return nil
	}
	return &t.messages[t.open]
}

// commit marks the open message complete. Committed messages never change.
func (t *Transcript) commit() {
	if m := t.openMessage(); m != nil {
		m.Complete = true
	}
	t.open = -1
}

// abandon detaches the open message without completing it.
func (t *Transcript) abandon() {
	t.open = -1
}
