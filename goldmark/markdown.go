// Package goldmark renders assistant message text as ANSI-styled terminal
// output, using goldmark for parsing and lipgloss for styling.
package goldmark

import "github.com/fwojciec/chat"

// Render parses markdown source and returns styled output. Paragraphs, list
// items and quotes wrap at width; code blocks keep their lines as written.
// A non-positive width means 80.
func Render(source string, width int, theme chat.Theme) string {
	if source == "" {
		return ""
	}
	if width <= 0 {
		width = 80
	}
	return newRenderer(theme, width).render([]byte(source))
}
