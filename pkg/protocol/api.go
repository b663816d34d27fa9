// Package protocol provides the JSON shapes of the genai HTTP API.
// These types can be imported by external clients.
package protocol

import "time"

// PromptRequest is the body of the chat and image routes.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// ChatMetrics describes the upstream work behind a reply.
type ChatMetrics struct {
	Tokens   *int   `json:"tokens,omitempty"`
	Duration string `json:"duration,omitempty"` // e.g. "1.23s"
}

// ChatResponse is a successful chat reply.
type ChatResponse struct {
	Success  bool         `json:"success"`
	Response string       `json:"response"`
	Model    string       `json:"model"`
	Attempts int          `json:"attempts,omitempty"`
	Metrics  *ChatMetrics `json:"metrics,omitempty"`
}

// ImageResponse is a successful image generation.
type ImageResponse struct {
	Success        bool     `json:"success"`
	ImageURL       string   `json:"imageUrl"`
	GenerationTime *float64 `json:"generationTime,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	ErrorCode string   `json:"errorCode"`
	Solutions []string `json:"solutions,omitempty"`
	Details   string   `json:"details,omitempty"` // development only
	Timestamp string   `json:"timestamp"`
}

// OllamaStatus describes the inference server.
// Running means its root endpoint answered with the liveness sentinel.
type OllamaStatus struct {
	Running bool   `json:"running"`
	Process bool   `json:"process"`
	Host    string `json:"host"`
}

// GatewayStats is a runtime snapshot of the gateway.
type GatewayStats struct {
	Uptime       string  `json:"uptime"`
	Requests     int64   `json:"requests"`
	Tokens       int64   `json:"tokens"`
	Errors       int64   `json:"errors"`
	Retries      int64   `json:"retries"`
	LogFailures  int64   `json:"logFailures"`
	AvgLatencyMs float64 `json:"avgLatencyMs"`
}

// StatusResponse reports upstream health.
// Models holds the required model name mapped to its availability,
// plus "loaded" naming the configured model or "none".
type StatusResponse struct {
	Success   bool           `json:"success"`
	Ollama    OllamaStatus   `json:"ollama"`
	Models    map[string]any `json:"models"`
	Gateway   *GatewayStats  `json:"gateway,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// HistoryItem is one stored generation.
type HistoryItem struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"` // text, image
	Prompt    string         `json:"prompt"`
	Data      string         `json:"data,omitempty"`
	URL       string         `json:"url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// HistoryResponse lists the caller's generations, newest first.
type HistoryResponse struct {
	Success bool          `json:"success"`
	Items   []HistoryItem `json:"items"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// HealthResponse is the liveness body of the gateway itself.
type HealthResponse struct {
	Status string `json:"status"`
}

// Timestamp formats t the way every response does.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
