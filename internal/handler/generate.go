package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/flynn-ai/genai/internal/gateway"
	"github.com/flynn-ai/genai/internal/middleware"
	"github.com/flynn-ai/genai/pkg/protocol"
)

// Generator is the gateway surface used by the routes.
type Generator interface {
	Chat(ctx context.Context, req gateway.PromptRequest) (*gateway.GenerationResult, error)
	Image(ctx context.Context, req gateway.PromptRequest) (*gateway.ImageResult, error)
	Status(ctx context.Context) *gateway.StatusReport
}

// Chat handles POST /api/ai/chat.
func Chat(gen Generator, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prompt, ok := decodePrompt(w, r)
		if !ok {
			return
		}

		res, err := gen.Chat(r.Context(), gateway.PromptRequest{Text: prompt, UserID: callerID(r)})
		if err != nil {
			writeError(w, err, dev)
			return
		}

		resp := protocol.ChatResponse{
			Success:  true,
			Response: res.Text,
			Model:    res.Model,
			Attempts: res.Attempts,
		}
		if res.TokenCount != nil || res.DurationSeconds != nil {
			resp.Metrics = &protocol.ChatMetrics{Tokens: res.TokenCount}
			if res.DurationSeconds != nil {
				resp.Metrics.Duration = fmt.Sprintf("%.2fs", *res.DurationSeconds)
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Image handles POST /api/ai/generate/image.
func Image(gen Generator, dev bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prompt, ok := decodePrompt(w, r)
		if !ok {
			return
		}

		res, err := gen.Image(r.Context(), gateway.PromptRequest{Text: prompt, UserID: callerID(r)})
		if err != nil {
			writeError(w, err, dev)
			return
		}

		writeJSON(w, http.StatusOK, protocol.ImageResponse{
			Success:        true,
			ImageURL:       res.URL,
			GenerationTime: res.GenerationTime,
		})
	}
}

func callerID(r *http.Request) string {
	if id, ok := middleware.IdentityFromContext(r.Context()); ok {
		return id.UserID
	}
	return ""
}
