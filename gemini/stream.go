package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/fwojciec/chat"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ chat.Channel = (*channel)(nil)

// Wire shapes of the synthesized frames.
type (
	wireMessageStart struct {
		Type    string      `json:"type"`
		Message wireMessage `json:"message"`
	}
	wireMessage struct {
		ID    string    `json:"id"`
		Role  string    `json:"role"`
		Usage wireUsage `json:"usage"`
	}
	wireUsage struct {
		InputTokens  int `json:"input_tokens,omitempty"`
		OutputTokens int `json:"output_tokens,omitempty"`
	}
	wireBlockStart struct {
		Type         string    `json:"type"`
		Index        int       `json:"index"`
		ContentBlock wireBlock `json:"content_block"`
	}
	wireBlock struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
		ID   string `json:"id,omitempty"`
		Name string `json:"name,omitempty"`
	}
	wireBlockDelta struct {
		Type  string    `json:"type"`
		Index int       `json:"index"`
		Delta wireDelta `json:"delta"`
	}
	wireDelta struct {
		Type     string `json:"type"`
		Text     string `json:"text,omitempty"`
		Thinking string `json:"thinking,omitempty"`
	}
	wireIndexed struct {
		Type  string `json:"type"`
		Index int    `json:"index"`
	}
	wireMessageDelta struct {
		Type  string         `json:"type"`
		Delta wireStopReason `json:"delta"`
		Usage wireUsage      `json:"usage"`
	}
	wireStopReason struct {
		StopReason string `json:"stop_reason,omitempty"`
	}
	wireType struct {
		Type string `json:"type"`
	}
)

// channel implements [chat.Channel] over the genai streaming iterator. It
// turns each response chunk into zero or more frames and queues them.
type channel struct {
	pull func() (*genai.GenerateContentResponse, error, bool)
	stop func()

	queue   [][]byte
	started bool
	done    bool
	closed  bool

	block      int    // index of the open block, -1 when none
	blockType  string // type of the open block
	finish     genai.FinishReason
	inputToks  int
	outputToks int
}

// NewChannelFromIter returns a channel reading from seq. Exported so tests
// can drive it with canned chunks.
func NewChannelFromIter(_ context.Context, seq iter.Seq2[*genai.GenerateContentResponse, error]) chat.Channel {
	next, stop := iter.Pull2(seq)
	return &channel{pull: next, stop: stop, block: -1}
}

// Next returns the next synthesized frame. io.EOF follows message_stop.
func (c *channel) Next() (chat.Frame, error) {
	if c.closed {
		return chat.Frame{}, fmt.Errorf("gemini: %w", chat.ErrChannelClosed)
	}
	for len(c.queue) == 0 {
		if c.done {
			return chat.Frame{}, io.EOF
		}
		resp, err, ok := c.pull()
		if !ok {
			c.finishMessage()
			c.done = true
			continue
		}
		if err != nil {
			return chat.Frame{}, fmt.Errorf("gemini: %w", err)
		}
		c.processChunk(resp)
	}
	data := c.queue[0]
	c.queue = c.queue[1:]
	return chat.Frame{Data: data}, nil
}

// Close stops the underlying iterator.
func (c *channel) Close() error {
	if !c.closed {
		c.closed = true
		c.stop()
	}
	return nil
}

func (c *channel) processChunk(resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	if u := resp.UsageMetadata; u != nil {
		c.inputToks = int(u.PromptTokenCount)
		c.outputToks = int(u.CandidatesTokenCount)
	}
	if !c.started {
		c.started = true
		c.push(wireMessageStart{
			Type: "message_start",
			Message: wireMessage{
				ID:    resp.ResponseID,
				Role:  string(chat.RoleAssistant),
				Usage: wireUsage{InputTokens: c.inputToks},
			},
		})
	}
	if len(resp.Candidates) == 0 {
		return
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != "" {
		c.finish = cand.FinishReason
	}
	if cand.Content == nil {
		return
	}
	for _, p := range cand.Content.Parts {
		c.processPart(p)
	}
}

func (c *channel) processPart(p *genai.Part) {
	switch {
	case p == nil:
	case p.FunctionCall != nil:
		c.closeBlock()
		c.openBlock(wireBlock{Type: "tool_use", ID: p.FunctionCall.ID, Name: p.FunctionCall.Name})
		c.closeBlock()
	case p.Thought:
		if c.blockType != "thinking" {
			c.closeBlock()
			c.openBlock(wireBlock{Type: "thinking"})
		}
		if p.Text != "" {
			c.push(wireBlockDelta{Type: "content_block_delta", Index: c.block, Delta: wireDelta{Type: "thinking_delta", Thinking: p.Text}})
		}
	case p.Text != "":
		if c.blockType != "text" {
			c.closeBlock()
			c.openBlock(wireBlock{Type: "text"})
		}
		c.push(wireBlockDelta{Type: "content_block_delta", Index: c.block, Delta: wireDelta{Type: "text_delta", Text: p.Text}})
	}
}

// openBlock starts b at the next block index.
func (c *channel) openBlock(b wireBlock) {
	c.block++
	c.blockType = b.Type
	c.push(wireBlockStart{Type: "content_block_start", Index: c.block, ContentBlock: b})
}

func (c *channel) closeBlock() {
	if c.blockType == "" {
		return
	}
	c.push(wireIndexed{Type: "content_block_stop", Index: c.block})
	c.blockType = ""
}

func (c *channel) finishMessage() {
	if !c.started {
		return
	}
	c.closeBlock()
	c.push(wireMessageDelta{
		Type:  "message_delta",
		Delta: wireStopReason{StopReason: mapFinishReason(c.finish)},
		Usage: wireUsage{OutputTokens: c.outputToks},
	})
	c.push(wireType{Type: "message_stop"})
}

func (c *channel) push(v any) {
	// Marshalling these fixed structs cannot fail.
	data, _ := json.Marshal(v)
	c.queue = append(c.queue, data)
}

func mapFinishReason(r genai.FinishReason) string {
	switch r {
	case "":
		return ""
	case genai.FinishReasonStop:
		return "end_turn"
	case genai.FinishReasonMaxTokens:
		return "max_tokens"
	default:
		return strings.ToLower(string(r))
	}
}
