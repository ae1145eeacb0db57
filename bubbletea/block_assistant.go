package bubbletea

import (
	"strings"

	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/goldmark"
)

var _ MessageBlock = (*AssistantTextBlock)(nil)

// AssistantTextBlock renders an assistant message with markdown formatting.
// Text up to the last paragraph break is rendered once per width and cached;
// only the trailing paragraph is re-rendered as the message grows.
type AssistantTextBlock struct {
	text        string
	complete    bool
	interrupted bool
	theme       chat.Theme
	styles      Styles

	stable        string
	stableByWidth map[int]string
}

// NewAssistantTextBlock creates an empty assistant block.
func NewAssistantTextBlock(theme chat.Theme, styles Styles) *AssistantTextBlock {
	return &AssistantTextBlock{
		theme:         theme,
		styles:        styles,
		stableByWidth: make(map[int]string),
	}
}

// SetMessage replaces the block's content with a transcript snapshot.
func (b *AssistantTextBlock) SetMessage(msg chat.Message) {
	b.text = msg.Content
	b.complete = msg.Complete
	b.splitStable()
}

// MarkInterrupted flags a block whose message never completed. Complete
// blocks are left alone.
func (b *AssistantTextBlock) MarkInterrupted() {
	if !b.complete {
		b.interrupted = true
	}
}

// Complete reports whether the last snapshot was complete.
func (b *AssistantTextBlock) Complete() bool { return b.complete }

func (b *AssistantTextBlock) View(width int) string {
	body := b.body(width)
	if !b.interrupted {
		return body
	}
	marker := b.styles.Interrupted.Render("[interrupted]")
	if body == "" {
		return marker
	}
	return body + "\n" + marker
}

func (b *AssistantTextBlock) body(width int) string {
	if width <= 0 {
		width = 80
	}
	stable := b.renderStable(width)
	tail := strings.TrimPrefix(b.text, b.stable)
	tail = strings.TrimLeft(tail, "\n")
	if hasUnclosedFence(tail) {
		tail += "\n```"
	}
	if strings.TrimSpace(tail) == "" {
		return stable
	}
	rendered := goldmark.Render(tail, width, b.theme)
	if stable == "" {
		return rendered
	}
	return stable + "\n\n" + rendered
}

// splitStable moves the cached prefix forward to the last paragraph break
// that is not inside a code fence.
func (b *AssistantTextBlock) splitStable() {
	if !strings.HasPrefix(b.text, b.stable) {
		b.stable = ""
		clear(b.stableByWidth)
	}
	for end := len(b.text); ; {
		idx := strings.LastIndex(b.text[:end], "\n\n")
		if idx <= 0 {
			return
		}
		candidate := b.text[:idx]
		if !hasUnclosedFence(candidate) {
			if candidate != b.stable {
				b.stable = candidate
				clear(b.stableByWidth)
			}
			return
		}
		end = idx
	}
}

func (b *AssistantTextBlock) renderStable(width int) string {
	if b.stable == "" {
		return ""
	}
	if cached, ok := b.stableByWidth[width]; ok {
		return cached
	}
	rendered := goldmark.Render(b.stable, width, b.theme)
	b.stableByWidth[width] = rendered
	return rendered
}

// hasUnclosedFence counts "```" occurrences. Backticks inside code spans are
// counted too.
func hasUnclosedFence(s string) bool {
	return strings.Count(s, "```")%2 == 1
}
