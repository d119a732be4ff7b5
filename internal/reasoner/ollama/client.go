// Package ollama implements port.ReasoningBackend against a local
// Ollama server's generate API.
package ollama

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

// Client implements port.ReasoningBackend using Ollama.
type Client struct {
	endpoint string
	model    string
	client   *http.Client
}

// NewClient creates an Ollama-backed reasoning client.
func NewClient(cfg *config.ReasonerProviderConfig) *Client {
	return NewClientWithEndpoint(cfg, cfg.Endpoint+"/api/generate")
}

// NewClientWithEndpoint creates a client pointing at a custom API
// endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ReasonerProviderConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "llama3.2:3b"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Reason(ctx context.Context, input port.ReasonInput) (*port.ReasonOutput, error) {
	reqBody := map[string]interface{}{
		"model":  c.model,
		"prompt": input.Prompt,
		"stream": false,
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

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &reasoner.BackendError{Provider: "ollama", Err: err, Transient: true}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &reasoner.BackendError{Provider: "ollama", Err: err, Transient: true}
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := reasoner.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, reasoner.NewRateLimitError("ollama", baseErr, retryAfter)
		}
		// 5xx from a single-node Ollama usually clears on retry.
		transient := resp.StatusCode >= http.StatusInternalServerError
		return nil, &reasoner.BackendError{Provider: "ollama", Err: baseErr, Transient: transient}
	}

	var parsed struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if parsed.Response == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	return &port.ReasonOutput{Text: parsed.Response, Model: c.model}, nil
}
