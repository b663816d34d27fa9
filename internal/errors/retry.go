// Package errors provides retry utilities for genai.
package errors

import (
	"context"
	"fmt"
	"time"
)

// ============================================================
// Retry Configuration
// ============================================================

// Policy defines retry behavior. The delay between attempts is fixed.
type Policy struct {
	// MaxAttempts is the total number of attempts, first one included
	MaxAttempts int

	// Delay is the wait between two attempts
	Delay time.Duration

	// RetryIf determines if an error is retryable; nil retries everything
	RetryIf func(error) bool

	// OnRetry is called before each wait with the failed attempt number (1-based)
	OnRetry func(attempt int, err error)
}

// FixedPolicy returns a policy making 1+retries attempts spaced by delay.
func FixedPolicy(retries int, delay time.Duration) *Policy {
	if retries < 0 {
		retries = 0
	}
	return &Policy{
		MaxAttempts: retries + 1,
		Delay:       delay,
	}
}

// NoRetry returns a policy that never retries.
func NoRetry() *Policy {
	return &Policy{
		MaxAttempts: 1,
		RetryIf:     func(error) bool { return false },
	}
}

// ============================================================
// Retry Function
// ============================================================

// DoWithResult executes a function that returns a result with retry logic.
// The last attempt's error is returned unwrapped so callers can classify it.
func DoWithResult[T any](ctx context.Context, policy *Policy, fn func(attempt int) (T, error)) (T, error) {
	var zero T

	if policy == nil {
		policy = NoRetry()
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(policy.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("retry canceled: %w", ctx.Err())
			case <-timer.C:
			}
		}

		result, err := fn(attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if policy.RetryIf != nil && !policy.RetryIf(err) {
			return zero, err
		}
		if attempt < maxAttempts && policy.OnRetry != nil {
			policy.OnRetry(attempt, err)
		}
	}

	return zero, lastErr
}
