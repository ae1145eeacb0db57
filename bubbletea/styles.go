package bubbletea

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/chat"
)

// Styles maps a Theme to lipgloss styles for TUI rendering.
type Styles struct {
	UserMsg     lipgloss.Style
	Interrupted lipgloss.Style
	Error       lipgloss.Style
	Muted       lipgloss.Style
}

// NewStyles creates Styles from a Theme.
func NewStyles(t chat.Theme) Styles {
	return Styles{
		UserMsg:     lipgloss.NewStyle().Foreground(ansiColor(t.UserMsg)).Bold(true),
		Interrupted: lipgloss.NewStyle().Foreground(ansiColor(t.Interrupted)).Italic(true),
		Error:       lipgloss.NewStyle().Foreground(ansiColor(t.Error)),
		Muted:       lipgloss.NewStyle().Foreground(ansiColor(t.Muted)).Faint(true),
	}
}

func ansiColor(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}
