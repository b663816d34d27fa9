// Package model provides types for generation requests.
package model

import "time"

// Request represents a text generation request.
type Request struct {
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature,omitempty"`
	ContextSize int     `json:"num_ctx,omitempty"`
	Seed        int64   `json:"seed,omitempty"`
}

// Response represents a text generation response.
// TokenCount and Duration are nil when the upstream omits them.
type Response struct {
	Text       string         `json:"text"`
	Model      string         `json:"model"`
	TokenCount *int           `json:"token_count,omitempty"`
	Duration   *time.Duration `json:"duration,omitempty"`
}

// Image represents a generated image.
type Image struct {
	URL            string   `json:"url"`
	GenerationTime *float64 `json:"generation_time,omitempty"`
}

// Tag is one entry of the inference server's model registry.
type Tag struct {
	Name       string `json:"name"`
	Model      string `json:"model,omitempty"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}
