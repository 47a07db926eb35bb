// Package genai is a thin REST client for the external generative-AI
// service: text completion for intent extraction and text embedding for
// similarity search. Responses are treated as untrusted free text; callers
// own parsing and validation.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"catalog-chat/internal/common/logger"
)

var (
	ErrCompletionFailed = errors.New("COMPLETION_FAILED")
	ErrEmbeddingFailed  = errors.New("EMBEDDING_FAILED")
)

// Config holds the remote service settings.
type Config struct {
	BaseURL        string
	APIKey         string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
}

type Client struct {
	config Config
	client *http.Client
	logger logger.Logger
}

func NewClient(config Config, log logger.Logger) *Client {
	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		logger: log.WithFields(map[string]interface{}{"component": "genai"}),
	}
}

// Complete sends a prompt to the chat model and returns its raw text reply.
// The reply is whatever the model produced; it may be fenced, truncated or
// otherwise malformed, and callers must treat that as a normal failure mode.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"response_mime_type": "text/plain",
			"temperature":        1.0,
		},
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.config.BaseURL, c.config.ChatModel, c.config.APIKey)

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%w: %v", ErrCompletionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrCompletionFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("%w: decode error: %v", ErrCompletionFailed, err)
	}

	if len(apiResponse.Candidates) == 0 || len(apiResponse.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrCompletionFailed)
	}

	return apiResponse.Candidates[0].Content.Parts[0].Text, nil
}
