// Package server wires the genai routes and owns the HTTP listener.
package server

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/netutil"

	"github.com/flynn-ai/genai/internal/handler"
	"github.com/flynn-ai/genai/internal/middleware"
)

// Deps are the collaborators of the routes.
type Deps struct {
	Gateway handler.Generator

	// History is nil when the generation log is disabled
	History handler.HistoryLister

	// Tokens resolves bearer tokens for protected routes
	Tokens middleware.TokenLookup

	// Dev exposes raw error details in responses
	Dev bool

	Logger       *slog.Logger
	CORSOrigins  []string
	MaxBodyBytes int64
}

// SetupMux wires handlers with the full middleware chain.
func SetupMux(d Deps) http.Handler {
	auth := middleware.Auth(d.Tokens)
	optional := middleware.OptionalAuth(d.Tokens)

	mux := http.NewServeMux()
	mux.Handle("POST /api/ai/test", handler.Ping())
	mux.Handle("POST /api/ai/chat", optional(handler.Chat(d.Gateway, d.Dev)))
	mux.Handle("POST /api/ai/generate/image", auth(handler.Image(d.Gateway, d.Dev)))
	mux.Handle("GET /api/ai/status", handler.Status(d.Gateway))
	mux.Handle("GET /api/ai/history", auth(handler.History(d.History, d.Dev)))
	mux.Handle("GET /healthz", handler.Healthz())
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Chain(mux, middleware.Options{
		Logger:       d.Logger,
		CORSOrigins:  d.CORSOrigins,
		MaxBodyBytes: d.MaxBodyBytes,
	})
}

// Timeouts bound the HTTP server. config.Validate keeps Write above the
// worst-case chat budget.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// New returns an HTTP server for h.
func New(addr string, h http.Handler, t Timeouts, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.Read,
		WriteTimeout:      t.Write,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
}

// Listen opens addr and caps concurrent connections at maxConns.
// Zero means unlimited.
func Listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}
