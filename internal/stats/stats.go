// Package stats provides runtime statistics for the gateway.
package stats

import (
	"runtime"
	"sync/atomic"
	"time"
)

// Collector collects gateway statistics. Safe for concurrent use.
type Collector struct {
	startTime     time.Time
	requestCount  atomic.Int64
	tokenCount    atomic.Int64
	errorCount    atomic.Int64
	retryCount    atomic.Int64
	logFailures   atomic.Int64
	totalDuration atomic.Int64 // nanoseconds
}

// NewCollector creates a new stats collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
	}
}

// Stats represents gateway statistics at a point in time.
type Stats struct {
	Goroutines   int     `json:"goroutines"`
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	Uptime       string  `json:"uptime"`
	RequestCount int64   `json:"request_count"`
	TokenCount   int64   `json:"token_count"`
	ErrorCount   int64   `json:"error_count"`
	RetryCount   int64   `json:"retry_count"`
	LogFailures  int64   `json:"log_failures"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}

// Collect returns current statistics.
func (c *Collector) Collect() *Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	requests := c.requestCount.Load()
	avgLatency := float64(0)
	if requests > 0 {
		avgLatency = float64(c.totalDuration.Load()) / float64(requests) / 1e6 // nanos to millis
	}

	return &Stats{
		Goroutines:   runtime.NumGoroutine(),
		HeapAllocMB:  bytesToMB(int64(m.HeapAlloc)),
		Uptime:       time.Since(c.startTime).Round(time.Second).String(),
		RequestCount: requests,
		TokenCount:   c.tokenCount.Load(),
		ErrorCount:   c.errorCount.Load(),
		RetryCount:   c.retryCount.Load(),
		LogFailures:  c.logFailures.Load(),
		AvgLatencyMs: avgLatency,
	}
}

// RecordRequest records a successful generation.
func (c *Collector) RecordRequest(tokens int, duration time.Duration) {
	c.requestCount.Add(1)
	c.tokenCount.Add(int64(tokens))
	c.totalDuration.Add(duration.Nanoseconds())
}

// RecordError records a failed generation.
func (c *Collector) RecordError() {
	c.errorCount.Add(1)
}

// RecordRetry records one retry of an upstream call.
func (c *Collector) RecordRetry() {
	c.retryCount.Add(1)
}

// RecordLogFailure records a generation record that could not be stored.
func (c *Collector) RecordLogFailure() {
	c.logFailures.Add(1)
}

// bytesToMB converts bytes to megabytes.
func bytesToMB(b int64) float64 {
	return float64(b) / 1024 / 1024
}
