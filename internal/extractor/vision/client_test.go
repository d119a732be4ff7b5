package vision_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propveris/internal/config"
	"propveris/internal/domain"
	"propveris/internal/extractor/vision"
	"propveris/internal/port"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func newTestClient(serverURL string) *vision.Client {
	cfg := &config.ExtractorConfig{
		Provider:    "vision",
		APIKey:      "test-api-key",
		Model:       "gpt-4o",
		TimeoutSecs: 30,
	}
	return vision.NewClientWithEndpoint(cfg, serverURL)
}

func spanContent(t *testing.T, spans []map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{"spans": spans})
	require.NoError(t, err)
	return string(data)
}

func TestClient_Extract_Success(t *testing.T) {
	content := spanContent(t, []map[string]interface{}{
		{"label": "landlord", "role": "party_name", "text": "Suresh Kumar", "page": 0, "bbox": []float64{0.1, 0.2, 0.5, 0.25}, "confidence": 0.93},
		{"label": "border", "role": "decoration", "text": "", "page": 0, "bbox": []float64{0, 0, 1, 1}, "confidence": 0.5},
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&reqBody)
		assert.NoError(t, err)
		assert.Equal(t, "gpt-4o", reqBody["model"])

		messages := reqBody["messages"].([]interface{})
		require.Len(t, messages, 1)
		blocks := messages[0].(map[string]interface{})["content"].([]interface{})
		require.Len(t, blocks, 2)
		assert.Equal(t, "image_url", blocks[0].(map[string]interface{})["type"])
		assert.Equal(t, "text", blocks[1].(map[string]interface{})["type"])

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	fields, err := c.Extract(context.Background(), port.ExtractInput{
		DocumentType: domain.DocTypeRentAgreement,
		FileBytes:    jpegBytes,
		ContentType:  "image/jpeg",
	})

	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "landlord", fields[0].Name)
	assert.Equal(t, "party_name", fields[0].Role)
	assert.Equal(t, "Suresh Kumar", fields[0].Text)
	assert.InDelta(t, 0.93, fields[0].Confidence, 0.001)
	assert.InDelta(t, 0.2, fields[0].Location.Y0, 0.001)
}

func TestClient_Extract_UnsupportedMedia(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Extract(context.Background(), port.ExtractInput{
		DocumentType: domain.DocTypeRentAgreement,
		FileBytes:    []byte("GIF89a not a real image"),
		ContentType:  "image/jpeg",
	})

	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
	assert.Equal(t, 0, calls)
}

func TestClient_Extract_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Extract(context.Background(), port.ExtractInput{
		DocumentType: domain.DocTypeRentAgreement,
		FileBytes:    jpegBytes,
		ContentType:  "image/jpeg",
	})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestClient_Extract_MalformedSpanJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "Sure! Here are the spans you asked for."}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Extract(context.Background(), port.ExtractInput{
		DocumentType: domain.DocTypeRentAgreement,
		FileBytes:    jpegBytes,
		ContentType:  "image/jpeg",
	})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}

func TestClient_Extract_MissingSpansKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": `{"fields":[]}`}, "finish_reason": "stop"},
			},
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	_, err := c.Extract(context.Background(), port.ExtractInput{
		DocumentType: domain.DocTypeRentAgreement,
		FileBytes:    jpegBytes,
		ContentType:  "image/jpeg",
	})

	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
}
