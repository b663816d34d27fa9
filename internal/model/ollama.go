// Package model provides the Ollama client for local inference.
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaConfig configures the Ollama client.
type OllamaConfig struct {
	BaseURL     string // Default: http://localhost:11434
	Model       string // e.g., "mistral:latest"
	Temperature float64
	ContextSize int
}

// DefaultOllamaConfig returns default configuration for a local Ollama.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:     "http://localhost:11434",
		Model:       "mistral:latest",
		Temperature: 0.7,
		ContextSize: 2048,
	}
}

// OllamaClient implements Model and Inference against the Ollama HTTP API.
// Deadlines come from the caller's context.
type OllamaClient struct {
	cfg    *OllamaConfig
	client *http.Client
}

// NewOllamaClient creates a new Ollama client. A nil http.Client uses http.DefaultClient.
func NewOllamaClient(cfg *OllamaConfig, client *http.Client) *OllamaClient {
	if cfg == nil {
		cfg = DefaultOllamaConfig()
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &OllamaClient{cfg: cfg, client: client}
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumCtx      int     `json:"num_ctx"`
	Seed        int64   `json:"seed,omitempty"`
}

type ollamaGenerateResponse struct {
	Model        string `json:"model"`
	Response     string `json:"response"`
	Done         bool   `json:"done"`
	EvalCount    *int   `json:"eval_count"`
	EvalDuration *int64 `json:"eval_duration"` // nanoseconds
}

type ollamaTagsResponse struct {
	Models []Tag `json:"models"`
}

// StatusError is returned when Ollama answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama: status %d: %s", e.StatusCode, e.Message)
}

// Generate sends a non-streaming prompt to /api/generate.
// An empty "response" field is returned as-is; judging it is the caller's job.
func (c *OllamaClient) Generate(ctx context.Context, req *Request) (*Response, error) {
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.cfg.Temperature
	}
	numCtx := req.ContextSize
	if numCtx == 0 {
		numCtx = c.cfg.ContextSize
	}

	body, err := json.Marshal(ollamaGenerateRequest{
		Model:  c.cfg.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: temperature,
			NumCtx:      numCtx,
			Seed:        req.Seed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	respBody, err := c.do(ctx, http.MethodPost, "/api/generate", body)
	if err != nil {
		return nil, err
	}

	var genResp ollamaGenerateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}

	resp := &Response{
		Text:       genResp.Response,
		Model:      genResp.Model,
		TokenCount: genResp.EvalCount,
	}
	if resp.Model == "" {
		resp.Model = c.cfg.Model
	}
	if genResp.EvalDuration != nil {
		d := time.Duration(*genResp.EvalDuration)
		resp.Duration = &d
	}
	return resp, nil
}

// Ping calls GET / and returns the raw body ("Ollama is running" when healthy).
func (c *OllamaClient) Ping(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Tags lists installed models via GET /api/tags.
func (c *OllamaClient) Tags(ctx context.Context) ([]Tag, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return nil, err
	}

	var tags ollamaTagsResponse
	if err := json.Unmarshal(body, &tags); err != nil {
		return nil, fmt.Errorf("ollama: decode tags: %w", err)
	}
	return tags.Models, nil
}

// Name returns the model name.
func (c *OllamaClient) Name() string {
	return c.cfg.Model
}

// Host returns the configured base URL.
func (c *OllamaClient) Host() string {
	return c.cfg.BaseURL
}

func (c *OllamaClient) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	httpReq, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama: request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ollama: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: upstreamMessage(respBody)}
	}
	return respBody, nil
}

// maxUpstreamMessage caps a non-JSON error body, counted in runes.
const maxUpstreamMessage = 200

// upstreamMessage prefers Ollama's {"error": "..."} body over the raw text.
func upstreamMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	msg := []rune(strings.TrimSpace(string(body)))
	if len(msg) > maxUpstreamMessage {
		return string(msg[:maxUpstreamMessage]) + "..."
	}
	return string(msg)
}
