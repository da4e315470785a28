// Package gateway implements the chat-completion client used for medicine
// advice, free-text analysis and notification text, with rate limiting,
// circuit breaking and response caching on top.
package gateway

import (
	"fmt"

	"github.com/health-triage-server/internal/domain"
)

// Message is one chat-completion message on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completion request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	TopP        float64   `json:"top_p"`
}

// ChatResponse is the chat-completion response body.
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Error represents a gateway failure: transport error, non-2xx status, or a
// response missing the expected shape. It matches
// domain.ErrGenerationFailed under errors.Is.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway request failed: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return domain.ErrGenerationFailed
}
