// Package model provides clients for the text and image generation upstreams.
package model

import "context"

// Model generates text from a prompt.
type Model interface {
	// Generate runs one inference call. It does not retry.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// Name returns the model identifier.
	Name() string
}

// ImageModel generates an image from a prompt.
type ImageModel interface {
	// GenerateImage runs one text-to-image call. It does not retry.
	GenerateImage(ctx context.Context, prompt string) (*Image, error)

	// IsAvailable reports whether the client is configured.
	IsAvailable() bool
}

// Inference is the read-only surface of the inference server used for health checks.
type Inference interface {
	// Ping calls the root endpoint and returns its body.
	Ping(ctx context.Context) (string, error)

	// Tags lists the models known to the server.
	Tags(ctx context.Context) ([]Tag, error)

	// Host returns the base URL of the server.
	Host() string
}
