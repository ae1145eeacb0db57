package chat

import (
	"fmt"
	"strings"
)

// Request is the outbound body of one exchange.
type Request struct {
	Message   string `json:"message"`
	MaxTokens int    `json:"max_tokens,omitempty"` // 0 = server default
}

// Validate checks universal constraints on Request.
// Transports may apply additional validation.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message must not be empty: %w", ErrValidation)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative, got %d: %w", r.MaxTokens, ErrValidation)
	}
	return nil
}
