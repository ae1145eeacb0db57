package chat

// Event is a sealed interface representing one decoded stream event.
// Events are transient: they exist for a single decode/apply step.
// The unexported marker method prevents external implementations.
type Event interface {
	event()
}

// EventMessageStart opens a new assistant message.
type EventMessageStart struct {
	ID          string
	InputTokens int
}

func (EventMessageStart) event() {}

// EventContentBlockStart opens a content block of the given type.
type EventContentBlockStart struct {
	BlockType string
	Text      string
}

func (EventContentBlockStart) event() {}

// EventContentBlockDelta carries a text fragment for the open block.
type EventContentBlockDelta struct {
	Text string
}

func (EventContentBlockDelta) event() {}

// EventContentBlockStop closes the open content block.
type EventContentBlockStop struct{}

func (EventContentBlockStop) event() {}

// EventMessageDelta carries message-level metadata emitted near the end of a
// message: the stop reason and cumulative output token count.
type EventMessageDelta struct {
	StopReason   string
	OutputTokens int
}

func (EventMessageDelta) event() {}

// EventMessageStop completes the open message.
type EventMessageStop struct{}

func (EventMessageStop) event() {}

// EventError is an error reported by the far end.
type EventError struct {
	Message string
}

func (EventError) event() {}

// EventUnknown is any event whose type discriminator is not recognized.
// It is kept so newer servers can add event types without breaking clients.
type EventUnknown struct {
	Type string
}

func (EventUnknown) event() {}

// Interface compliance checks.
var (
	_ Event = EventMessageStart{}
	_ Event = EventContentBlockStart{}
	_ Event = EventContentBlockDelta{}
	_ Event = EventContentBlockStop{}
	_ Event = EventMessageDelta{}
	_ Event = EventMessageStop{}
	_ Event = EventError{}
	_ Event = EventUnknown{}
)
