// Package openai implements port.ReasoningBackend against an
// OpenAI-compatible chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"propveris/internal/config"
	"propveris/internal/port"
	"propveris/internal/reasoner"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Client implements port.ReasoningBackend using the OpenAI Chat
// Completions API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates an OpenAI-backed reasoning client.
func NewClient(cfg *config.ReasonerProviderConfig) *Client {
	endpoint := defaultAPIURL
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint + "/v1/chat/completions"
	}
	return NewClientWithEndpoint(cfg, endpoint)
}

// NewClientWithEndpoint creates a client pointing at a custom API
// endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ReasonerProviderConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	reqBody := map[string]interface{}{
		"model":                 c.model,
		"max_completion_tokens": 4096,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": input.Prompt,
			},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &reasoner.BackendError{Provider: "openai", Err: err, Transient: true}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &reasoner.BackendError{Provider: "openai", Err: err, Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := reasoner.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, reasoner.NewRateLimitError("openai", baseErr, retryAfter)
		}
		transient := resp.StatusCode >= http.StatusInternalServerError
		return nil, &reasoner.BackendError{Provider: "openai", Err: baseErr, Transient: transient}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}

	return &port.ReasonOutput{Text: parsed.Choices[0].Message.Content, Model: c.model}, nil
}
