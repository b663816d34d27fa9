package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, path, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genai_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// GenerationAttempts counts upstream generation calls by operation (text, image).
	GenerationAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genai_generation_attempts_total",
		Help: "Upstream generation attempts, retries included.",
	}, []string{"operation"})

	// GenerationFailures counts requests that ended in a gateway error, by kind.
	GenerationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genai_generation_failures_total",
		Help: "Generation requests that failed, by error kind.",
	}, []string{"operation", "kind"})

	// GenerationDuration tracks end-to-end gateway latency per operation.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "genai_generation_duration_seconds",
		Help:    "Time spent in the gateway, probe and retries included.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 240},
	}, []string{"operation"})

	// ProbeFailures counts failed health checks by the step that failed.
	ProbeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "genai_probe_failures_total",
		Help: "Upstream health probe failures by step.",
	}, []string{"step"})

	// ResultLogFailures counts generation records that could not be stored.
	ResultLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "genai_result_log_failures_total",
		Help: "Best-effort generation log writes that failed.",
	})
)
