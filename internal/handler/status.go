package handler

import (
	"net/http"
	"time"

	"github.com/flynn-ai/genai/pkg/protocol"
)

// Status handles GET /api/ai/status. It reports, it never fails.
func Status(gen Generator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := gen.Status(r.Context())

		loaded := "none"
		if report.Health.ModelLoaded {
			loaded = report.Model
		}

		resp := protocol.StatusResponse{
			Success: true,
			Ollama: protocol.OllamaStatus{
				Running: report.Health.APIReachable,
				Process: report.Health.ProcessRunning,
				Host:    report.Host,
			},
			Models: map[string]any{
				report.RequiredModel: report.Health.ModelLoaded,
				"loaded":             loaded,
			},
			Timestamp: protocol.Timestamp(time.Now()),
		}
		if s := report.Stats; s != nil {
			resp.Gateway = &protocol.GatewayStats{
				Uptime:       s.Uptime,
				Requests:     s.RequestCount,
				Tokens:       s.TokenCount,
				Errors:       s.ErrorCount,
				Retries:      s.RetryCount,
				LogFailures:  s.LogFailures,
				AvgLatencyMs: s.AvgLatencyMs,
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// Healthz handles GET /healthz, the liveness of the gateway itself.
func Healthz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, protocol.HealthResponse{Status: "ok"})
	}
}

// Ping handles POST /api/ai/test, a connectivity check for clients.
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, protocol.MessageResponse{Success: true, Message: "Test route working"})
	}
}
