// Package errors provides the gateway error contract for genai.
package errors

import (
	"errors"
	"net/http"
	"strings"
)

// ============================================================
// Error Kinds
// ============================================================

// Kind classifies a gateway failure for callers.
type Kind int

const (
	// KindUpstreamError is the catch-all for failures that fit nowhere else
	KindUpstreamError Kind = iota

	// KindInvalidInput errors are caused by the caller's prompt
	KindInvalidInput

	// KindServiceUnavailable errors mean the upstream is down or misconfigured
	KindServiceUnavailable

	// KindTimeout errors mean an attempt exceeded its time budget
	KindTimeout

	// KindEmptyResponse errors mean the upstream answered with nothing usable
	KindEmptyResponse
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindTimeout:
		return "timeout"
	case KindEmptyResponse:
		return "empty_response"
	case KindUpstreamError:
		return "upstream_error"
	default:
		return "unknown"
	}
}

// HTTPStatus maps a kind to the transport status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================
// GatewayError - Main Error Type
// ============================================================

// GatewayError is the only error shape that leaves the gateway.
type GatewayError struct {
	// Kind drives the HTTP status and retry decisions
	Kind Kind

	// Code is a unique error code for programmatic handling
	Code string

	// Message is a user-friendly error message
	Message string

	// Inner is the underlying error
	Inner error

	// Remediation lists suggested next actions, most relevant first
	Remediation []string

	// Context is additional debugging information
	Context map[string]any
}

// Error returns the error message.
func (e *GatewayError) Error() string {
	var sb strings.Builder

	if e.Code != "" {
		sb.WriteString("[")
		sb.WriteString(e.Code)
		sb.WriteString("] ")
	}

	sb.WriteString(e.Message)

	if e.Inner != nil {
		innerMsg := e.Inner.Error()
		if innerMsg != "" && innerMsg != e.Message {
			sb.WriteString(": ")
			sb.WriteString(innerMsg)
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *GatewayError) Unwrap() error {
	return e.Inner
}

// ============================================================
// Error Constructors
// ============================================================

// New creates a new GatewayError.
func New(kind Kind, code, message string, remediation ...string) *GatewayError {
	return &GatewayError{
		Kind:        kind,
		Code:        code,
		Message:     message,
		Remediation: remediation,
	}
}

// Wrap wraps an existing error with a kind and code.
func Wrap(err error, kind Kind, code, message string, remediation ...string) *GatewayError {
	if err == nil {
		return nil
	}
	return &GatewayError{
		Kind:        kind,
		Code:        code,
		Message:     message,
		Inner:       err,
		Remediation: remediation,
	}
}

// InvalidInput creates a caller error.
func InvalidInput(code, message string, remediation ...string) *GatewayError {
	return New(KindInvalidInput, code, message, remediation...)
}

// Unavailable creates a service-unavailable error.
func Unavailable(code, message string, remediation ...string) *GatewayError {
	return New(KindServiceUnavailable, code, message, remediation...)
}

// ============================================================
// Builder Pattern for Fluent Error Construction
// ============================================================

// Builder provides fluent error construction.
type Builder struct {
	err *GatewayError
}

// NewBuilder starts building a new error. Kind defaults to KindUpstreamError.
func NewBuilder(code, message string) *Builder {
	return &Builder{
		err: &GatewayError{
			Kind:    KindUpstreamError,
			Code:    code,
			Message: message,
			Context: make(map[string]any),
		},
	}
}

// Kind sets the error kind.
func (b *Builder) Kind(kind Kind) *Builder {
	b.err.Kind = kind
	return b
}

// Wrap sets the underlying error.
func (b *Builder) Wrap(err error) *Builder {
	b.err.Inner = err
	return b
}

// WithRemediation adds a suggested next action.
func (b *Builder) WithRemediation(suggestion string) *Builder {
	b.err.Remediation = append(b.err.Remediation, suggestion)
	return b
}

// WithContext adds context information.
func (b *Builder) WithContext(key string, value any) *Builder {
	b.err.Context[key] = value
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *GatewayError {
	return b.err
}

// ============================================================
// Error Codes
// ============================================================

const (
	// Input errors
	CodeMissingPrompt = "MISSING_PROMPT"
	CodeInvalidPrompt = "INVALID_PROMPT"

	// Inference service errors
	CodeServiceDown    = "OLLAMA_DOWN"
	CodeModelNotLoaded = "MODEL_NOT_LOADED"
	CodeTimeout        = "TIMEOUT"
	CodeEmptyResponse  = "EMPTY_RESPONSE"
	CodeServiceError   = "AI_SERVICE_ERROR"
	CodeCanceled       = "REQUEST_CANCELED"

	// Image service errors
	CodeImageUnconfigured = "IMAGE_SERVICE_UNCONFIGURED"
	CodeImageFailed       = "IMAGE_GENERATION_ERROR"
)

// ============================================================
// Helpers
// ============================================================

// As extracts a *GatewayError from an error chain.
func As(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// KindOf returns the kind of an error.
// Returns KindUpstreamError for errors that were never classified.
func KindOf(err error) Kind {
	if gwErr, ok := As(err); ok {
		return gwErr.Kind
	}
	return KindUpstreamError
}

// GetRemediation returns the suggested next actions for an error.
func GetRemediation(err error) []string {
	if gwErr, ok := As(err); ok {
		return gwErr.Remediation
	}
	return nil
}
