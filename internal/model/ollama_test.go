package model

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOllama(t *testing.T, handler http.HandlerFunc) *OllamaClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultOllamaConfig()
	cfg.BaseURL = srv.URL + "/"
	return NewOllamaClient(cfg, srv.Client())
}

func TestOllamaGenerate(t *testing.T) {
	client := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ollamaGenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral:latest", req.Model)
		assert.Equal(t, "hello", req.Prompt)
		assert.False(t, req.Stream)
		assert.Equal(t, 0.7, req.Options.Temperature)
		assert.Equal(t, 2048, req.Options.NumCtx)
		assert.Equal(t, int64(99), req.Options.Seed)

		w.Write([]byte(`{"model":"mistral:latest","response":"Hi there","done":true,"eval_count":12,"eval_duration":1500000000}`))
	})

	resp, err := client.Generate(context.Background(), &Request{Prompt: "hello", Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, "Hi there", resp.Text)
	assert.Equal(t, "mistral:latest", resp.Model)
	require.NotNil(t, resp.TokenCount)
	assert.Equal(t, 12, *resp.TokenCount)
	require.NotNil(t, resp.Duration)
	assert.Equal(t, 1500*time.Millisecond, *resp.Duration)
}

func TestOllamaGenerateMissingMetrics(t *testing.T) {
	client := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response":""}`))
	})

	resp, err := client.Generate(context.Background(), &Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Empty(t, resp.Text)
	assert.Nil(t, resp.TokenCount)
	assert.Nil(t, resp.Duration)
	assert.Equal(t, "mistral:latest", resp.Model)
}

func TestOllamaStatusError(t *testing.T) {
	client := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model 'mistral:latest' not found, try pulling it first"}`))
	})

	_, err := client.Generate(context.Background(), &Request{Prompt: "hello"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "not found")
}

func TestOllamaStatusErrorTruncatesByRune(t *testing.T) {
	body := strings.Repeat("é", 300)
	client := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(body))
	})

	_, err := client.Generate(context.Background(), &Request{Prompt: "hello"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.True(t, utf8.ValidString(statusErr.Message))
	assert.Equal(t, strings.Repeat("é", maxUpstreamMessage)+"...", statusErr.Message)
}

func TestOllamaGenerateHonorsDeadline(t *testing.T) {
	release := make(chan struct{})
	client := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, &Request{Prompt: "hello"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOllamaPingAndTags(t *testing.T) {
	client := newOllama(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte("Ollama is running"))
		case "/api/tags":
			w.Write([]byte(`{"models":[{"name":"llama3:8b"},{"name":"mistral:latest","size":4100000000}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	body, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ollama is running", body)

	tags, err := client.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "mistral:latest", tags[1].Name)
}

func TestOllamaConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cfg := DefaultOllamaConfig()
	cfg.BaseURL = url
	client := NewOllamaClient(cfg, nil)

	_, err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
