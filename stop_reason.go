package chat

// StopReason indicates why the assistant stopped generating.
type StopReason string

const (
	StopNone     StopReason = ""
	StopEndTurn  StopReason = "end_turn"
	StopLength   StopReason = "length"
	StopSequence StopReason = "stop_sequence"
	StopUnknown  StopReason = "unknown"
)

// ParseStopReason maps a raw wire stop reason to a StopReason.
// Empty input maps to StopNone.
func ParseStopReason(raw string) StopReason {
	switch raw {
	case "":
		return StopNone
	case "end_turn":
		return StopEndTurn
	case "max_tokens":
		return StopLength
	case "stop_sequence":
		return StopSequence
	default:
		return StopUnknown
	}
}
