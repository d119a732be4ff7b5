// Package layoutlm implements port.FieldExtractor against a
// layout-model inference service: a thin HTTP wrapper around a
// LayoutLM-family token classification model that returns located text
// spans with predicted semantic roles.
package layoutlm

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

// Client implements port.FieldExtractor using a layout-model inference
// service.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewClient creates a layout-model-backed field extractor.
func NewClient(cfg *config.ExtractorConfig) *Client {
	return NewClientWithEndpoint(cfg, cfg.Endpoint+"/v1/extract")
}

// NewClientWithEndpoint creates a client pointing at a custom API
// endpoint (for testing).
func NewClientWithEndpoint(cfg *config.ExtractorConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "layoutlmv3-base"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Extract(ctx context.Context, input port.ExtractInput) ([]domain.ExtractedField, error) {
	kind, err := extractor.ValidateMedia(input.FileBytes, input.ContentType)
	if err != nil {
		return nil, err
	}

	pages := 1
	if kind == domain.MediaPDF {
		pages = extractor.CountPDFPages(input.FileBytes)
	}

	encoded := base64.StdEncoding.EncodeToString(input.FileBytes)

	var fields []domain.ExtractedField
	for page := 0; page < pages; page++ {
		pageFields, err := c.extractPage(ctx, encoded, input.ContentType, page)
		if err != nil {
			return nil, err
		}
		fields = append(fields, pageFields...)
	}

	return extractor.FilterRelevant(fields, input.DocumentType), nil
}

func (c *Client) extractPage(ctx context.Context, encoded, contentType string, page int) ([]domain.ExtractedField, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"document":   encoded,
		"media_type": contentType,
		"page":       page,
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
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling extraction service: %v", domain.ErrExtractionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrExtractionFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: extraction service status %d: %s",
			domain.ErrExtractionFailed, resp.StatusCode, string(respBody))
	}

	return parseResponse(respBody, page)
}

// extractResponse models the inference service response for one page.
type extractResponse struct {
	Spans []struct {
		Label      string     `json:"label"`
		Role       string     `json:"role"`
		Text       string     `json:"text"`
		BBox       [4]float64 `json:"bbox"`
		Confidence float64    `json:"confidence"`
	} `json:"spans"`
}

func parseResponse(body []byte, page int) ([]domain.ExtractedField, error) {
	var resp extractResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling response: %v", domain.ErrExtractionFailed, err)
	}
	if resp.Spans == nil {
		return nil, fmt.Errorf("%w: malformed response: missing spans", domain.ErrExtractionFailed)
	}

	fields := make([]domain.ExtractedField, 0, len(resp.Spans))
	for _, s := range resp.Spans {
		fields = append(fields, domain.ExtractedField{
			Name: s.Label,
			Role: s.Role,
			Text: s.Text,
			Location: domain.Location{
				Page: page,
				X0:   s.BBox[0], Y0: s.BBox[1],
				X1: s.BBox[2], Y1: s.BBox[3],
			},
			Confidence: s.Confidence,
		})
	}
	return fields, nil
}
