// Package bubbletea provides a Bubble Tea terminal client for a chat session.
package bubbletea

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/chat"
)

// SendFunc runs one exchange. The onEvent callback receives every session
// notification; the function blocks until the exchange ends or ctx is
// cancelled.
type SendFunc func(ctx context.Context, req chat.Request, onEvent func(chat.SessionEvent)) error

// SessionSender adapts a Session to a SendFunc. maxTokens is passed on every
// request; zero leaves the choice to the server.
func SessionSender(s *chat.Session, maxTokens int) SendFunc {
	return func(ctx context.Context, req chat.Request, onEvent func(chat.SessionEvent)) error {
		if req.MaxTokens == 0 {
			req.MaxTokens = maxTokens
		}
		return s.Send(ctx, req, chat.WithEventHandler(onEvent))
	}
}

// Run creates and runs the Bubble Tea program. It blocks until the program
// exits. Cancelling ctx quits the program.
func Run(ctx context.Context, m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	go func() {
		<-ctx.Done()
		p.Quit()
	}()
	_, err := p.Run()
	return err
}

// SessionEventMsg delivers a session notification to the model.
type SessionEventMsg struct {
	Event chat.SessionEvent
}

// SendDoneMsg signals that an exchange has ended.
type SendDoneMsg struct {
	Err error
}
