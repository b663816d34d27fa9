// Package middleware provides the HTTP middleware stack of the genai server.
package middleware

import (
	"log/slog"
	"net/http"
	"slices"
)

// CORS adds CORS headers. An empty origin list allows any origin.
func CORS(origins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(origins) == 0:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case slices.Contains(origins, origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MaxBytes limits the request body to n bytes.
func MaxBytes(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}

// Options configures Chain.
type Options struct {
	Logger       *slog.Logger
	CORSOrigins  []string
	MaxBodyBytes int64
}

// Chain wraps the handler with the full middleware stack.
// Order: CORS → RequestID → Logging → Metrics → MaxBytes → mux
func Chain(handler http.Handler, opts Options) http.Handler {
	h := handler
	if opts.MaxBodyBytes > 0 {
		h = MaxBytes(opts.MaxBodyBytes)(h)
	}
	h = Metrics(h)
	h = Logging(opts.Logger)(h)
	h = RequestID(h)
	h = CORS(opts.CORSOrigins)(h)
	return h
}
