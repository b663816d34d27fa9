package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"syscall"
)

// ErrEmptyResponse marks an upstream reply that parsed fine but carried no output.
var ErrEmptyResponse = errors.New("AI service returned empty response")

// Classify maps a raw generation failure to a GatewayError.
//
// Order matters: refused connections and timeouts are detected from typed
// signals before the error text is searched for the model name, so a slow
// model load that hit the deadline is reported as a timeout.
func Classify(err error, modelName string) *GatewayError {
	if err == nil {
		return nil
	}

	if gwErr, ok := As(err); ok {
		return gwErr
	}

	switch {
	case isConnRefused(err):
		return Wrap(err, KindServiceUnavailable, CodeServiceDown, "AI service unavailable",
			"Start the inference service: `ollama serve`",
			"Check the configured inference host")

	case isTimeout(err):
		return Wrap(err, KindTimeout, CodeTimeout, "Request timed out",
			"Try a shorter prompt",
			"Increase the request timeout")

	case mentionsModel(err, modelName):
		return Wrap(err, KindServiceUnavailable, CodeModelNotLoaded,
			fmt.Sprintf("Model %s is not available", modelName),
			fmt.Sprintf("Download the model: `ollama pull %s`", baseModelName(modelName)))

	case errors.Is(err, ErrEmptyResponse):
		return Wrap(err, KindEmptyResponse, CodeEmptyResponse, ErrEmptyResponse.Error(),
			"Try again",
			"Rephrase or simplify your prompt")

	case errors.Is(err, context.Canceled):
		return Wrap(err, KindUpstreamError, CodeCanceled, "Request canceled",
			"Try again")
	}

	return Wrap(err, KindUpstreamError, CodeServiceError, "Chat processing failed",
		"Try again later",
		"Simplify your prompt")
}

func isConnRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "econnrefused")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func mentionsModel(err error, modelName string) bool {
	name := strings.ToLower(baseModelName(modelName))
	if name == "" {
		return false
	}
	return strings.Contains(strings.ToLower(upstreamText(err)), name)
}

// upstreamText is the failure text without the request URL that *url.Error
// prepends, so an inference host named after the model cannot match.
func upstreamText(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// baseModelName strips the tag: "mistral:latest" -> "mistral".
func baseModelName(modelName string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(modelName), ":")
	return name
}
