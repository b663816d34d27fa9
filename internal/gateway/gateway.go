// Package gateway owns one generation request from prompt to classified result.
//
// A chat request moves through Validating -> HealthChecking -> Calling ->
// Classifying. Every exit path yields either a result or a *errors.GatewayError.
//
// The health probe runs before the call, and the inference server can still
// go away in between. The probe is only an early exit: a lost race surfaces
// from the call path and is classified like any other failure.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flynn-ai/genai/internal/errors"
	"github.com/flynn-ai/genai/internal/health"
	"github.com/flynn-ai/genai/internal/metrics"
	"github.com/flynn-ai/genai/internal/model"
	"github.com/flynn-ai/genai/internal/stats"
	"github.com/flynn-ai/genai/internal/store"
)

const (
	opText  = "text"
	opImage = "image"
)

// Config is read-only once the gateway is built.
type Config struct {
	// Timeout bounds each text generation attempt
	Timeout time.Duration

	// MaxRetries is the number of retries after the first text attempt
	MaxRetries int

	// RetryDelay is the fixed wait between text attempts
	RetryDelay time.Duration

	// ImageTimeout bounds the single image generation attempt
	ImageTimeout time.Duration

	// RecordTimeout bounds one best-effort log write
	RecordTimeout time.Duration
}

// DefaultConfig returns the reference timeouts and retry budget.
func DefaultConfig() Config {
	return Config{
		Timeout:       60 * time.Second,
		MaxRetries:    3,
		RetryDelay:    time.Second,
		ImageTimeout:  45 * time.Second,
		RecordTimeout: 5 * time.Second,
	}
}

// Prober gates generation calls on upstream health.
type Prober interface {
	Check(ctx context.Context) (*health.Status, error)
	Snapshot(ctx context.Context) *health.Status
	RequiredModel() string
	Host() string
}

// Recorder stores successful generations.
type Recorder interface {
	Record(ctx context.Context, c *store.Content) error
}

// Deps are the collaborators of a Gateway. Recorder, Stats and Logger are optional.
type Deps struct {
	Text     model.Model
	Image    model.ImageModel
	Probe    Prober
	Recorder Recorder
	Stats    *stats.Collector
	Logger   *slog.Logger
}

// PromptRequest is one inbound prompt.
type PromptRequest struct {
	Text   string
	UserID string
}

// GenerationResult is a successful text generation.
type GenerationResult struct {
	Text            string
	TokenCount      *int
	DurationSeconds *float64
	Model           string
	Attempts        int
}

// ImageResult is a successful image generation.
type ImageResult struct {
	URL            string
	GenerationTime *float64
}

// StatusReport describes the upstream without failing.
type StatusReport struct {
	Health        *health.Status
	Host          string
	Model         string
	RequiredModel string
	Stats         *stats.Stats
}

// Gateway validates, health-gates, retries and classifies generation requests.
type Gateway struct {
	cfg      Config
	text     model.Model
	image    model.ImageModel
	probe    Prober
	recorder Recorder
	stats    *stats.Collector
	logger   *slog.Logger

	// pending tracks detached log writes
	pending sync.WaitGroup
}

// New creates a gateway.
func New(cfg Config, deps Deps) *Gateway {
	if deps.Stats == nil {
		deps.Stats = stats.NewCollector()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Gateway{
		cfg:      cfg,
		text:     deps.Text,
		image:    deps.Image,
		probe:    deps.Probe,
		recorder: deps.Recorder,
		stats:    deps.Stats,
		logger:   deps.Logger,
	}
}

// Chat generates a text reply.
func (g *Gateway) Chat(ctx context.Context, req PromptRequest) (*GenerationResult, error) {
	start := time.Now()
	result, err := g.chat(ctx, req)
	tokens := 0
	if result != nil && result.TokenCount != nil {
		tokens = *result.TokenCount
	}
	g.observe(opText, start, tokens, err)
	return result, err
}

func (g *Gateway) chat(ctx context.Context, req PromptRequest) (*GenerationResult, error) {
	// Validating
	prompt, err := ValidateChat(req.Text)
	if err != nil {
		return nil, err
	}

	// HealthChecking
	if _, err := g.probe.Check(ctx); err != nil {
		return nil, errors.Classify(err, g.text.Name())
	}

	// Calling
	policy := errors.FixedPolicy(g.cfg.MaxRetries, g.cfg.RetryDelay)
	policy.RetryIf = func(error) bool {
		// The caller giving up ends the loop; everything else spends the budget.
		return ctx.Err() == nil
	}
	policy.OnRetry = func(attempt int, err error) {
		g.stats.RecordRetry()
		g.logger.Warn("[RETRY]", "attempt", attempt, "delay", g.cfg.RetryDelay, "error", err.Error())
	}

	attempts := 0
	resp, err := errors.DoWithResult(ctx, policy, func(attempt int) (*model.Response, error) {
		attempts = attempt
		return g.generateOnce(ctx, attempt, prompt)
	})

	// Classifying
	if err != nil {
		return nil, errors.Classify(err, g.text.Name())
	}

	result := &GenerationResult{
		Text:       resp.Text,
		TokenCount: resp.TokenCount,
		Model:      resp.Model,
		Attempts:   attempts,
	}
	if resp.Duration != nil {
		secs := resp.Duration.Seconds()
		result.DurationSeconds = &secs
	}

	meta := map[string]any{"model": resp.Model, "attempts": attempts}
	if resp.TokenCount != nil {
		meta["eval_count"] = *resp.TokenCount
	}
	if resp.Duration != nil {
		meta["duration_ms"] = float64(*resp.Duration) / float64(time.Millisecond)
	}
	g.record(ctx, &store.Content{
		UserID:   req.UserID,
		Type:     store.ContentText,
		Prompt:   prompt,
		Data:     resp.Text,
		Metadata: meta,
	})

	return result, nil
}

// generateOnce is one Calling attempt under its own timeout.
func (g *Gateway) generateOnce(ctx context.Context, attempt int, prompt string) (*model.Response, error) {
	metrics.GenerationAttempts.WithLabelValues(opText).Inc()
	g.logger.Debug("[ATTEMPT]", "attempt", attempt, "prompt", preview(prompt, 30))

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	resp, err := g.text.Generate(ctx, &model.Request{
		Prompt: prompt,
		Seed:   time.Now().UnixMilli(),
	})
	if err != nil {
		return nil, err
	}
	if resp.Text == "" {
		g.logger.Warn("[EMPTY_RESPONSE]", "attempt", attempt, "prompt_length", len(prompt))
		return nil, fmt.Errorf("attempt %d: %w", attempt, errors.ErrEmptyResponse)
	}
	return resp, nil
}

// Image generates an image. Image calls are neither health-gated nor retried.
func (g *Gateway) Image(ctx context.Context, req PromptRequest) (*ImageResult, error) {
	start := time.Now()
	result, err := g.generateImage(ctx, req)
	g.observe(opImage, start, 0, err)
	return result, err
}

func (g *Gateway) generateImage(ctx context.Context, req PromptRequest) (*ImageResult, error) {
	prompt, err := ValidateImage(req.Text)
	if err != nil {
		return nil, err
	}

	if g.image == nil || !g.image.IsAvailable() {
		return nil, errors.Unavailable(errors.CodeImageUnconfigured, "Image service API key not configured",
			"Set DEEPAI_API_KEY or image.api_key in the config file")
	}

	metrics.GenerationAttempts.WithLabelValues(opImage).Inc()
	actx, cancel := context.WithTimeout(ctx, g.cfg.ImageTimeout)
	defer cancel()

	img, err := g.image.GenerateImage(actx, prompt)
	if err != nil {
		return nil, classifyImage(err)
	}
	if img.URL == "" {
		return nil, errors.Wrap(errors.ErrEmptyResponse, errors.KindEmptyResponse, errors.CodeEmptyResponse,
			"Invalid response from image service",
			"Try a different prompt",
			"Wait and retry")
	}

	meta := map[string]any{"service": "DeepAI"}
	if img.GenerationTime != nil {
		meta["generation_time"] = *img.GenerationTime
	}
	g.record(ctx, &store.Content{
		UserID:   req.UserID,
		Type:     store.ContentImage,
		Prompt:   prompt,
		URL:      img.URL,
		Metadata: meta,
	})

	return &ImageResult{URL: img.URL, GenerationTime: img.GenerationTime}, nil
}

// classifyImage reuses the text taxonomy with image-specific codes and advice.
func classifyImage(err error) *errors.GatewayError {
	gwErr := errors.Classify(err, "")
	switch gwErr.Kind {
	case errors.KindTimeout:
		return gwErr
	case errors.KindServiceUnavailable:
		return errors.Wrap(err, errors.KindServiceUnavailable, errors.CodeImageFailed, "Image service unavailable",
			"Wait and retry")
	}
	if gwErr.Code == errors.CodeCanceled {
		return gwErr
	}
	return errors.Wrap(err, errors.KindUpstreamError, errors.CodeImageFailed, "Image generation failed",
		"Check your API key",
		"Try a different prompt",
		"Wait and retry")
}

// Status reports upstream health without gating anything.
func (g *Gateway) Status(ctx context.Context) *StatusReport {
	return &StatusReport{
		Health:        g.probe.Snapshot(ctx),
		Host:          g.probe.Host(),
		Model:         g.text.Name(),
		RequiredModel: g.probe.RequiredModel(),
		Stats:         g.stats.Collect(),
	}
}

// Wait blocks until every detached log write has finished.
func (g *Gateway) Wait() {
	g.pending.Wait()
}

// record stores c on a detached goroutine. The response path never waits for
// it and its failures are only logged.
func (g *Gateway) record(ctx context.Context, c *store.Content) {
	if g.recorder == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	g.pending.Add(1)
	go func() {
		defer g.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				g.logFailure(fmt.Errorf("recorder panic: %v", r))
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, g.cfg.RecordTimeout)
		defer cancel()

		if err := g.recorder.Record(ctx, c); err != nil {
			g.logFailure(err)
		}
	}()
}

func (g *Gateway) logFailure(err error) {
	metrics.ResultLogFailures.Inc()
	g.stats.RecordLogFailure()
	g.logger.Error("[DB_SAFE_ERROR]", "error", err.Error())
}

func (g *Gateway) observe(op string, start time.Time, tokens int, err error) {
	elapsed := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		kind := errors.KindOf(err)
		metrics.GenerationFailures.WithLabelValues(op, kind.String()).Inc()
		g.stats.RecordError()
		g.logger.Warn("[GENERATION_FAILED]",
			"op", op,
			"kind", kind.String(),
			"error", err.Error(),
			"remediation", errors.GetRemediation(err),
			"elapsed", elapsed)
		return
	}
	g.stats.RecordRequest(tokens, elapsed)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
