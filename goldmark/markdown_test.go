package goldmark_test

import (
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/goldmark"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.ANSI)
	os.Exit(m.Run())
}

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string { return ansi.ReplaceAllString(s, "") }

func TestRender(t *testing.T) {
	t.Parallel()

	theme := chat.DefaultTheme()

	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"plain", "hello", []string{"hello"}},
		{"heading", "## Subtitle", []string{"Subtitle"}},
		{"emphasis", "*soft* and **loud**", []string{"soft and loud"}},
		{"code span", "run `make`", []string{"run make"}},
		{"fenced with language", "```go\nx := 1\n```", []string{"go\n│ x := 1"}},
		{"fenced without language", "```\nsome code\n```", []string{"│ some code"}},
		{"indented code", "para\n\n    a\n    b", []string{"│ a\n│ b"}},
		{"bullets", "- one\n- two", []string{"- one\n- two"}},
		{"ordered from three", "3. c\n4. d", []string{"3. c\n4. d"}},
		{"nested", "- outer\n  - inner", []string{"- outer\n  - inner"}},
		{"link", "[click](https://example.com)", []string{"click (https://example.com)"}},
		{"image", "![alt](https://example.com/i.png)", []string{"alt (https://example.com/i.png)"}},
		{"autolink", "<https://example.com>", []string{"https://example.com"}},
		{"quote", "> quoted", []string{"┃ quoted"}},
		{"rule", "above\n\n---\n\nbelow", []string{"above", "─", "below"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := plain(goldmark.Render(tt.source, 80, theme))
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestRender_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, goldmark.Render("", 80, chat.DefaultTheme()))
}

func TestRender_ParagraphsSeparated(t *testing.T) {
	t.Parallel()
	got := plain(goldmark.Render("first\n\nsecond", 80, chat.DefaultTheme()))
	assert.Equal(t, "first\n\nsecond", got)
}

func TestRender_Wraps(t *testing.T) {
	t.Parallel()

	src := "one two three four five six seven eight nine ten eleven twelve"
	got := plain(goldmark.Render(src, 20, chat.DefaultTheme()))

	lines := strings.Split(got, "\n")
	assert.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, len(line), 20)
		assert.Equal(t, strings.TrimRight(line, " "), line)
	}
}

func TestRender_CodeIsNotReflowed(t *testing.T) {
	t.Parallel()

	src := "```\nfmt.Println(\"a long line that exceeds the width\")\n```"
	got := plain(goldmark.Render(src, 20, chat.DefaultTheme()))
	assert.Contains(t, got, `fmt.Println("a long line that exceeds the width")`)
}

func TestRender_ListContinuationIndented(t *testing.T) {
	t.Parallel()

	src := "- a list item long enough that it has to wrap onto further lines"
	got := plain(goldmark.Render(src, 24, chat.DefaultTheme()))

	lines := strings.Split(got, "\n")
	assert.True(t, strings.HasPrefix(lines[0], "- "))
	for _, line := range lines[1:] {
		assert.True(t, strings.HasPrefix(line, "  "), "continuation %q", line)
	}
}

func TestRender_DefaultWidth(t *testing.T) {
	t.Parallel()
	got := plain(goldmark.Render("hello world", 0, chat.DefaultTheme()))
	assert.Equal(t, "hello world", got)
}
