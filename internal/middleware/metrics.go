package middleware

import (
	"net/http"
	"strconv"

	"github.com/flynn-ai/genai/internal/metrics"
)

// Metrics records request count by method, route, and status code.
// The route is the matched mux pattern, so path parameters and unknown
// paths do not blow up label cardinality.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
	})
}
