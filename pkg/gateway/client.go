package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/health-triage-server/internal/domain"
)

// Default sampling parameters for generation requests.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
	DefaultTopP        = 0.9
)

// Client talks to an OpenAI-compatible chat-completions endpoint. Requests
// are paced by a rate limiter and bounded by the configured timeout; there
// are no automatic retries.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logrus.Logger
}

// NewClient creates a new chat-completion client
func NewClient(cfg *domain.GatewayConfig, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger,
	}
}

// Generate sends one chat-completion request and returns the generated
// text. Every failure mode maps to a *Error wrapping
// domain.ErrGenerationFailed.
func (c *Client) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", &Error{Message: fmt.Sprintf("rate limit wait: %v", err)}
	}

	messages := make([]Message, 0, len(req.History)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.History {
		messages = append(messages, Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, Message{Role: "user", Content: req.UserPrompt})

	temperature := req.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}

	body := ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        DefaultTopP,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("marshaling request: %v", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("building request: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"model": c.model,
			"error": err,
		}).Warn("Gateway request failed")
		return "", &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("reading response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.WithFields(logrus.Fields{
			"model":  c.model,
			"status": resp.StatusCode,
		}).Warn("Gateway returned non-success status")
		return "", &Error{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", &Error{Message: fmt.Sprintf("decoding response: %v", err)}
	}
	if len(chatResp.Choices) == 0 {
		return "", &Error{Message: "response contained no choices"}
	}

	c.log.WithFields(logrus.Fields{
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Gateway request completed")

	return chatResp.Choices[0].Message.Content, nil
}
