// Package model provides the DeepAI text-to-image client.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DeepAIConfig configures the DeepAI client.
type DeepAIConfig struct {
	APIKey  string
	BaseURL string // Default: https://api.deepai.org
}

// DeepAIClient implements ImageModel using the DeepAI text2img API.
type DeepAIClient struct {
	cfg    *DeepAIConfig
	client *http.Client
}

// NewDeepAIClient creates a new DeepAI client. A nil http.Client uses http.DefaultClient.
func NewDeepAIClient(cfg *DeepAIConfig, client *http.Client) *DeepAIClient {
	if cfg == nil {
		cfg = &DeepAIConfig{}
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepai.org"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &DeepAIClient{cfg: cfg, client: client}
}

type deepAIResponse struct {
	ID             string   `json:"id"`
	OutputURL      string   `json:"output_url"`
	GenerationTime *float64 `json:"generation_time"`
	Err            string   `json:"err"`
}

// GenerateImage posts the prompt to /api/text2img.
// An empty output_url is returned as-is; judging it is the caller's job.
func (c *DeepAIClient) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	if !c.IsAvailable() {
		return nil, fmt.Errorf("deepai: API key not configured")
	}

	body, err := json.Marshal(map[string]string{"text": prompt})
	if err != nil {
		return nil, fmt.Errorf("deepai: marshal request: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/text2img"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("deepai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("deepai: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepai: read response: %w", err)
	}

	var out deepAIResponse
	decodeErr := json.Unmarshal(respBody, &out)

	if resp.StatusCode != http.StatusOK {
		msg := out.Err
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return nil, fmt.Errorf("deepai: status %d: %s", resp.StatusCode, msg)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("deepai: decode response: %w", decodeErr)
	}

	return &Image{URL: out.OutputURL, GenerationTime: out.GenerationTime}, nil
}

// IsAvailable checks if the client is configured.
func (c *DeepAIClient) IsAvailable() bool {
	return c != nil && c.cfg != nil && c.cfg.APIKey != ""
}
