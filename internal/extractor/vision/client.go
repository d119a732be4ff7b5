// Package vision implements port.FieldExtractor on top of an
// OpenAI-compatible chat completions endpoint with vision input. It is
// an alternative to the dedicated layout-model service for deployments
// that only have a multimodal LLM available.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"propveris/internal/config"
	"propveris/internal/domain"
	"propveris/internal/extractor"
	"propveris/internal/port"
)

const defaultAPIURL = "https://api.openai.com/v1/chat/completions"

// Client implements port.FieldExtractor using a vision-capable chat
// completions model.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a vision-model-backed field extractor.
func NewClient(cfg *config.ExtractorConfig) *Client {
	endpoint := defaultAPIURL
	if cfg.Endpoint != "" {
		endpoint = cfg.Endpoint + "/v1/chat/completions"
	}
	return NewClientWithEndpoint(cfg, endpoint)
}

// NewClientWithEndpoint creates a client pointing at a custom API
// endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ExtractorConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

const spanPrompt = `You are a document layout analyzer. Identify every labeled text span in the document and return ONLY a JSON object of the form:
{"spans":[{"label":"","role":"","text":"","page":0,"bbox":[0,0,1,1],"confidence":0.0}]}

Roles must be one of: party_name, date, amount, address, clause_heading, clause_value.
Bounding boxes are normalized to [0,1] per page. Confidence is your certainty in [0,1].
Return no markdown, no code fences, no explanation.`

func (c *Client) Extract(ctx context.Context, input port.ExtractInput) ([]domain.ExtractedField, error) {
	if _, err := extractor.ValidateMedia(input.FileBytes, input.ContentType); err != nil {
		return nil, err
	}

	contentBlocks := buildContentBlocks(input)

	reqBody := map[string]interface{}{
		"model":                 c.model,
		"max_completion_tokens": 8192,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
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
		return nil, fmt.Errorf("%w: calling vision API: %v", domain.ErrExtractionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrExtractionFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: vision API status %d: %s",
			domain.ErrExtractionFailed, resp.StatusCode, string(respBody))
	}

	fields, err := parseResponse(respBody)
	if err != nil {
		return nil, err
	}
	return extractor.FilterRelevant(fields, input.DocumentType), nil
}

func buildContentBlocks(input port.ExtractInput) []map[string]interface{} {
	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)
	dataURI := fmt.Sprintf("data:%s;base64,%s", input.ContentType, encoded)

	var blocks []map[string]interface{}
	if input.ContentType == "application/pdf" {
		blocks = append(blocks, map[string]interface{}{
			"type": "file",
			"file": map[string]interface{}{
				"filename":  "document.pdf",
				"file_data": dataURI,
			},
		})
	} else {
		blocks = append(blocks, map[string]interface{}{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url": dataURI,
			},
		})
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "text",
		"text": spanPrompt,
	})
	return blocks
}

// apiResponse models the chat completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte) ([]domain.ExtractedField, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", domain.ErrExtractionFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response from API: no choices", domain.ErrExtractionFailed)
	}

	var parsed struct {
		Spans []struct {
			Label      string     `json:"label"`
			Role       string     `json:"role"`
			Text       string     `json:"text"`
			Page       int        `json:"page"`
			BBox       [4]float64 `json:"bbox"`
			Confidence float64    `json:"confidence"`
		} `json:"spans"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parsing span JSON: %v", domain.ErrExtractionFailed, err)
	}
	if parsed.Spans == nil {
		return nil, fmt.Errorf("%w: malformed response: missing spans", domain.ErrExtractionFailed)
	}

	fields := make([]domain.ExtractedField, 0, len(parsed.Spans))
	for _, s := range parsed.Spans {
		fields = append(fields, domain.ExtractedField{
			Name: s.Label,
			Role: s.Role,
			Text: s.Text,
			Location: domain.Location{
				Page: s.Page,
				X0:   s.BBox[0], Y0: s.BBox[1],
				X1: s.BBox[2], Y1: s.BBox[3],
			},
			Confidence: s.Confidence,
		})
	}
	return fields, nil
}
