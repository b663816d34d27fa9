package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flynn-ai/genai/pkg/protocol"
)

// apiError is a non-2xx answer decoded from the error contract.
type apiError struct {
	Status int
	Body   protocol.ErrorResponse
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Body.ErrorCode, e.Body.Message)
}

type client struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient(baseURL, token string, hc *http.Client) *client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: hc}
}

func (c *client) Chat(ctx context.Context, prompt string) (*protocol.ChatResponse, error) {
	var out protocol.ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/chat", protocol.PromptRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Image(ctx context.Context, prompt string) (*protocol.ImageResponse, error) {
	var out protocol.ImageResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/generate/image", protocol.PromptRequest{Prompt: prompt}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) Status(ctx context.Context) (*protocol.StatusResponse, error) {
	var out protocol.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/api/ai/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) History(ctx context.Context, limit int) (*protocol.HistoryResponse, error) {
	path := "/api/ai/history"
	if limit > 0 {
		path += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}
	var out protocol.HistoryResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if json.Unmarshal(data, &apiErr.Body) != nil || apiErr.Body.Message == "" {
			apiErr.Body.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
