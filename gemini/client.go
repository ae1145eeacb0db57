package gemini

import (
	"context"
	"fmt"

	"github.com/fwojciec/chat"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ chat.Transport = (*Client)(nil)

// Client implements [chat.Transport] for the Google Gemini API.
type Client struct {
	client       *genai.Client
	model        string
	maxTokens    int
	systemPrompt string
}

// Option configures a [Client].
type Option func(*Client)

// WithModel sets the model ID. Default is gemini-2.5-flash.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithMaxTokens sets the output limit used when a request does not set one.
func WithMaxTokens(n int) Option {
	return func(c *Client) { c.maxTokens = n }
}

// WithSystemPrompt sets a system instruction sent with every request.
func WithSystemPrompt(prompt string) Option {
	return func(c *Client) { c.systemPrompt = prompt }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	c := &Client{
		client:    gc,
		model:     defaultModel,
		maxTokens: defaultMaxTokens,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Open starts a streaming generation with req.Message as the single user
// turn. The request is sent when the channel is first read.
func (c *Client) Open(ctx context.Context, req chat.Request) (chat.Channel, error) {
	contents := []*genai.Content{{
		Role:  string(chat.RoleUser),
		Parts: []*genai.Part{{Text: req.Message}},
	}}
	seq := c.client.Models.GenerateContentStream(ctx, c.model, contents, BuildConfig(req, c.maxTokens, c.systemPrompt))
	return NewChannelFromIter(ctx, seq), nil
}

// BuildConfig returns the generation config for req. A zero req.MaxTokens
// falls back to maxTokens. Exported for testing.
func BuildConfig(req chat.Request, maxTokens int, systemPrompt string) *genai.GenerateContentConfig {
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	return config
}
