package chat

// Theme maps transcript elements to ANSI color indices (0-15). The
// terminal's palette decides the actual colors.
type Theme struct {
	UserMsg     int // user prompt marker
	Interrupted int // marker on assistant messages that never completed
	Error       int // failures and server-reported errors
	Muted       int // status line, placeholders, link targets
	CodeBg      int // inline code background; -1 for none
	Accent      int // headings
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg:     4,
		Interrupted: 3,
		Error:       1,
		Muted:       8,
		CodeBg:      -1,
		Accent:      5,
	}
}
