package chat

import "time"

// RestartPolicy decides what happens to the open message when a second
// message_start arrives before message_stop.
type RestartPolicy int

const (
	// RestartAbandon leaves the stale message incomplete forever and opens a
	// new one. This matches the behaviour of existing clients.
	RestartAbandon RestartPolicy = iota
	// RestartComplete commits the stale message before opening a new one.
	RestartComplete
)

// Assembler is the state machine that applies decoded events to the tail of
// a Transcript. It owns the BlockCursor for the open message.
//
// Apply never fails: an event that has no defined effect in the current
// state is ignored, so a single stray frame cannot damage content that was
// already assembled.
type Assembler struct {
	transcript *Transcript
	cursor     *BlockCursor
	restart    RestartPolicy
}

// AssemblerOption configures an [Assembler].
type AssemblerOption func(*Assembler)

// WithRestartPolicy sets the policy for a message_start that arrives while a
// message is still open. Default is RestartAbandon.
func WithRestartPolicy(p RestartPolicy) AssemblerOption {
	return func(a *Assembler) { a.restart = p }
}

// NewAssembler returns an Assembler writing to t.
func NewAssembler(t *Transcript, opts ...AssemblerOption) *Assembler {
	a := &Assembler{transcript: t}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Transcript returns the transcript the assembler writes to.
func (a *Assembler) Transcript() *Transcript { return a.transcript }

// Cursor returns a copy of the current block cursor, if one exists.
func (a *Assembler) Cursor() (BlockCursor, bool) {
	if a.cursor == nil {
		return BlockCursor{}, false
	}
	return *a.cursor, true
}

// Apply applies evt and reports whether the transcript changed.
func (a *Assembler) Apply(evt Event) bool {
	switch e := evt.(type) {
	case EventMessageStart:
		return a.messageStart(e)
	case EventContentBlockStart:
		if a.transcript.openMessage() == nil {
			return false
		}
		// Initial block text is ignored; content arrives through deltas.
		a.cursor = &BlockCursor{Type: ParseBlockType(e.BlockType), RawType: e.BlockType, Open: true}
		return false
	case EventContentBlockDelta:
		m := a.transcript.openMessage()
		if m == nil || !a.cursor.acceptsText() || e.Text == "" {
			return false
		}
		m.Content += e.Text
		return true
	case EventContentBlockStop:
		if a.transcript.openMessage() == nil || a.cursor == nil {
			return false
		}
		a.cursor.Open = false
		return false
	case EventMessageDelta:
		m := a.transcript.openMessage()
		if m == nil {
			return false
		}
		changed := false
		if sr := ParseStopReason(e.StopReason); sr != StopNone && sr != m.StopReason {
			m.StopReason = sr
			changed = true
		}
		if e.OutputTokens > 0 && e.OutputTokens != m.Usage.OutputTokens {
			m.Usage.OutputTokens = e.OutputTokens
			changed = true
		}
		return changed
	case EventMessageStop:
		a.cursor = nil
		if a.transcript.openMessage() == nil {
			return false
		}
		a.transcript.commit()
		return true
	default:
		// EventUnknown, EventError and anything newer: no transcript effect.
		return false
	}
}

func (a *Assembler) messageStart(e EventMessageStart) bool {
	if a.transcript.openMessage() != nil {
		switch a.restart {
		case RestartComplete:
			a.transcript.commit()
		default:
			a.transcript.abandon()
		}
	}
	a.cursor = nil
	a.transcript.appendOpen(e.ID, time.Now())
	a.transcript.openMessage().Usage.InputTokens = e.InputTokens
	return true
}

// detach ends routing to the open message without completing it and drops
// the cursor. Used when the channel feeding the assembler is gone.
func (a *Assembler) detach() {
	a.cursor = nil
	a.transcript.abandon()
}
