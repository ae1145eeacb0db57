package goldmark

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/chat"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const minWrapWidth = 10

type renderer struct {
	width int

	heading lipgloss.Style
	bold    lipgloss.Style
	italic  lipgloss.Style
	code    lipgloss.Style
	link    lipgloss.Style
	muted   lipgloss.Style
}

func newRenderer(theme chat.Theme, width int) *renderer {
	code := lipgloss.NewStyle().Bold(true)
	if theme.CodeBg >= 0 {
		code = code.Background(color(theme.CodeBg))
	}
	return &renderer{
		width:   width,
		heading: lipgloss.NewStyle().Foreground(color(theme.Accent)).Bold(true),
		bold:    lipgloss.NewStyle().Bold(true),
		italic:  lipgloss.NewStyle().Italic(true),
		code:    code,
		link:    lipgloss.NewStyle().Underline(true),
		muted:   lipgloss.NewStyle().Foreground(color(theme.Muted)).Faint(true),
	}
}

func color(index int) lipgloss.TerminalColor {
	if index < 0 {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(strconv.Itoa(index))
}

func (r *renderer) render(source []byte) string {
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))
	blocks := r.blocks(doc, source, r.width)
	return strings.Join(blocks, "\n\n")
}

// blocks renders each block child of parent. Blocks are joined by the
// caller so separators never trail.
func (r *renderer) blocks(parent ast.Node, source []byte, width int) []string {
	var out []string
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if s := r.block(n, source, width); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (r *renderer) block(n ast.Node, source []byte, width int) string {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return wrap(r.inline(n, source), width)
	case *ast.Heading:
		return wrap(r.heading.Render(r.inline(n, source)), width)
	case *ast.FencedCodeBlock:
		body := r.codeLines(n, source)
		if lang := string(n.Language(source)); lang != "" {
			return r.muted.Render(lang) + "\n" + body
		}
		return body
	case *ast.CodeBlock:
		return r.codeLines(n, source)
	case *ast.List:
		return r.list(n, source, width)
	case *ast.Blockquote:
		bar := r.muted.Render("┃") + " "
		inner := strings.Join(r.blocks(n, source, max(width-2, minWrapWidth)), "\n\n")
		return prefixLines(inner, bar, bar)
	case *ast.ThematicBreak:
		return r.muted.Render(strings.Repeat("─", min(width, 40)))
	case *ast.HTMLBlock:
		return strings.TrimRight(rawLines(n, source), "\n")
	default:
		return strings.Join(r.blocks(n, source, width), "\n\n")
	}
}

func (r *renderer) codeLines(n ast.Node, source []byte) string {
	gutter := r.muted.Render("│") + " "
	return prefixLines(strings.TrimRight(rawLines(n, source), "\n"), gutter, gutter)
}

func (r *renderer) list(l *ast.List, source []byte, width int) string {
	var items []string
	num := l.Start
	for c := l.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "- "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		pad := strings.Repeat(" ", len(marker))
		// Tight list items hold their text directly; nested lists follow.
		inner := strings.Join(r.blocks(c, source, max(width-len(marker), minWrapWidth)), "\n")
		items = append(items, prefixLines(inner, marker, pad))
	}
	return strings.Join(items, "\n")
}

// inline renders the inline children of n.
func (r *renderer) inline(n ast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		r.writeInline(&b, c, source)
	}
	return b.String()
}

func (r *renderer) writeInline(b *strings.Builder, n ast.Node, source []byte) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(n.Segment.Value(source))
		switch {
		case n.HardLineBreak():
			b.WriteByte('\n')
		case n.SoftLineBreak():
			b.WriteByte(' ')
		}
	case *ast.String:
		b.Write(n.Value)
	case *ast.Emphasis:
		style := r.italic
		if n.Level >= 2 {
			style = r.bold
		}
		b.WriteString(style.Render(r.inline(n, source)))
	case *ast.CodeSpan:
		b.WriteString(r.code.Render(r.inline(n, source)))
	case *ast.Link:
		b.WriteString(r.link.Render(r.inline(n, source)))
		b.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.Image:
		b.WriteString(r.link.Render(r.inline(n, source)))
		b.WriteString(" " + r.muted.Render("("+string(n.Destination)+")"))
	case *ast.AutoLink:
		b.WriteString(r.link.Render(string(n.URL(source))))
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(source))
		}
	default:
		b.WriteString(r.inline(n, source))
	}
}

// wrap reflows s to width. lipgloss pads every line to the full width, so
// the padding is trimmed again.
func wrap(s string, width int) string {
	lines := strings.Split(lipgloss.NewStyle().Width(width).Render(s), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

func rawLines(n ast.Node, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// prefixLines puts first before the first line of s and rest before every
// other line.
func prefixLines(s, first, rest string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
