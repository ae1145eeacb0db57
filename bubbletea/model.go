package bubbletea

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fwojciec/chat"
	"github.com/mattn/go-runewidth"
)

var _ tea.Model = Model{}

// Model is the Bubble Tea model for the chat client.
type Model struct {
	// Input is the text input component. Exported for test access.
	Input textinput.Model
	// Viewport is the scrollable output area. Exported for test access.
	Viewport viewport.Model

	send   SendFunc
	theme  chat.Theme
	styles Styles

	blocks []MessageBlock
	// byIndex maps transcript indices to their blocks so snapshots of a
	// growing message update the block that shows it.
	byIndex map[int]MessageBlock
	// turn holds the assistant blocks created by the running exchange.
	turn []*AssistantTextBlock

	usage   chat.Usage
	running bool
	cancel  context.CancelFunc
	eventCh chan chat.SessionEvent
	doneCh  chan error
	err     error
	ready   bool
}

// New creates a Model. history holds messages already in the session's
// transcript, in transcript order.
func New(send SendFunc, history []chat.Message, theme chat.Theme) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message..."
	ti.Prompt = ""
	ti.Focus()
	ti.CharLimit = 0

	m := Model{
		Input:   ti,
		send:    send,
		theme:   theme,
		styles:  NewStyles(theme),
		byIndex: make(map[int]MessageBlock),
	}
	for i, msg := range history {
		m = m.applyMessage(i, msg)
	}
	// Messages left open by an earlier exchange never complete.
	for _, b := range m.turn {
		b.MarkInterrupted()
	}
	m.turn = nil
	return m
}

// Running returns whether an exchange is in progress.
func (m Model) Running() bool { return m.running }

// Err returns the error of the last exchange, if any.
func (m Model) Err() error { return m.err }

// Usage returns the token usage of the last completed assistant message.
func (m Model) Usage() chat.Usage { return m.usage }

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SessionEventMsg:
		m = m.processEvent(msg.Event)
		m.refresh()
		if m.eventCh != nil {
			return m, listenForEvent(m.eventCh, m.doneCh)
		}
		return m, nil

	case SendDoneMsg:
		m.running = false
		m.cancel = nil
		m.eventCh = nil
		m.doneCh = nil
		if msg.Err != nil && !errors.Is(msg.Err, context.Canceled) {
			m.err = msg.Err
		}
		for _, b := range m.turn {
			b.MarkInterrupted()
		}
		m.turn = nil
		m.refresh()
		return m, m.Input.Focus()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.Viewport, cmd = m.Viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.running {
		m.Input, cmd = m.Input.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	var b strings.Builder
	b.WriteString(m.Viewport.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.Input.View())
	return b.String()
}

func (m Model) handleWindowSize(msg tea.WindowSizeMsg) Model {
	const (
		inputHeight  = 1
		statusHeight = 1
		gapHeight    = 2
	)
	vpHeight := max(msg.Height-inputHeight-statusHeight-gapHeight, 1)

	if !m.ready {
		m.Viewport = viewport.New(msg.Width, vpHeight)
		m.ready = true
	} else {
		m.Viewport.Width = msg.Width
		m.Viewport.Height = vpHeight
	}
	m.Input.Width = msg.Width
	m.refresh()
	return m
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.running {
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyEnter:
		if m.running {
			return m, nil
		}
		text := strings.TrimSpace(m.Input.Value())
		if text == "" {
			return m, nil
		}
		return m.submit(text)
	}

	if m.running {
		return m, nil
	}
	// Character keys go to the input only; 'j' and 'k' also scroll the
	// viewport.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	if msg.Type != tea.KeyRunes {
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.Input, cmd = m.Input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) submit(text string) (tea.Model, tea.Cmd) {
	m.Input.SetValue("")
	m.Input.Blur()
	m.err = nil

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.eventCh = make(chan chat.SessionEvent, 256)
	m.doneCh = make(chan error, 1)
	m.running = true

	return m, tea.Batch(
		startSend(ctx, m.send, chat.Request{Message: text}, m.eventCh, m.doneCh),
		listenForEvent(m.eventCh, m.doneCh),
	)
}

func (m Model) processEvent(evt chat.SessionEvent) Model {
	switch e := evt.(type) {
	case chat.SessionAppended:
		m = m.applyMessage(e.Index, e.Message)
		if e.Message.Role == chat.RoleAssistant && e.Message.Complete {
			m.usage = e.Message.Usage
		}
	case chat.SessionServerError:
		m.blocks = append(m.blocks, NewErrorBlock(e.Message, m.styles))
	case chat.SessionFailed:
		if !errors.Is(e.Err, context.Canceled) {
			m.err = e.Err
		}
	}
	return m
}

// applyMessage creates or updates the block for transcript index i.
func (m Model) applyMessage(i int, msg chat.Message) Model {
	if block, ok := m.byIndex[i]; ok {
		if b, ok := block.(*AssistantTextBlock); ok {
			b.SetMessage(msg)
		}
		return m
	}
	var block MessageBlock
	switch msg.Role {
	case chat.RoleUser:
		block = NewUserMessageBlock(msg.Content, m.styles)
	default:
		b := NewAssistantTextBlock(m.theme, m.styles)
		b.SetMessage(msg)
		m.turn = append(m.turn, b)
		block = b
	}
	m.blocks = append(m.blocks, block)
	m.byIndex[i] = block
	return m
}

// refresh re-renders the viewport and scrolls to the newest content. The
// viewport is shared by value copies of the model, so this runs on the
// copy being returned.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	m.Viewport.SetContent(m.renderContent())
	m.Viewport.GotoBottom()
}

func (m Model) renderContent() string {
	views := make([]string, 0, len(m.blocks))
	for _, block := range m.blocks {
		views = append(views, block.View(m.Viewport.Width))
	}
	return strings.Join(views, "\n\n")
}

func (m Model) statusLine() string {
	var text string
	style := m.styles.Muted
	switch {
	case m.err != nil:
		text = fmt.Sprintf("Error: %v", m.err)
		style = m.styles.Error
	case m.running:
		text = "Generating..."
	case m.usage != (chat.Usage{}):
		text = fmt.Sprintf("%d in, %d out · Enter to send, Ctrl+C to quit", m.usage.InputTokens, m.usage.OutputTokens)
	default:
		text = "Enter to send, Ctrl+C to quit"
	}
	if m.Viewport.Width > 0 {
		text = runewidth.Truncate(text, m.Viewport.Width, "…")
	}
	return style.Render(text)
}

// startSend runs the exchange in a goroutine and signals completion.
func startSend(ctx context.Context, send SendFunc, req chat.Request, eventCh chan<- chat.SessionEvent, doneCh chan<- error) tea.Cmd {
	return func() tea.Msg {
		err := send(ctx, req, func(e chat.SessionEvent) {
			select {
			case eventCh <- e:
			case <-ctx.Done():
			}
		})
		close(eventCh)
		doneCh <- err
		return nil
	}
}

// listenForEvent waits for the next notification. When the channel closes
// it reads the exchange result from doneCh.
func listenForEvent(ch <-chan chat.SessionEvent, doneCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return SendDoneMsg{Err: <-doneCh}
		}
		return SessionEventMsg{Event: evt}
	}
}
