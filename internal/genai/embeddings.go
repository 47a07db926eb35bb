package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TaskType selects the embedding optimization target.
type TaskType string

const (
	TaskDocument TaskType = "retrieval_document"
	TaskQuery    TaskType = "retrieval_query"
)

// Embed generates a vector for the given text. Newlines are flattened
// before embedding; empty text is an error.
func (c *Client) Embed(ctx context.Context, text string, task TaskType) ([]float32, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrEmbeddingFailed)
	}

	requestBody := map[string]interface{}{
		"model": "models/" + c.config.EmbeddingModel,
		"content": map[string]interface{}{
			"parts": []map[string]string{{"text": text}},
		},
		"taskType": string(task),
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s",
		c.config.BaseURL, c.config.EmbeddingModel, c.config.APIKey)

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrEmbeddingFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrEmbeddingFailed, err)
	}

	if len(apiResponse.Embedding.Values) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrEmbeddingFailed)
	}

	return apiResponse.Embedding.Values, nil
}
