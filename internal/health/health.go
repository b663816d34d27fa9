// Package health verifies that the inference server can take a generation call.
//
// Nothing is cached: every Check re-runs every step, since the server process
// or its model can disappear between two requests.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/flynn-ai/genai/internal/errors"
	"github.com/flynn-ai/genai/internal/metrics"
	"github.com/flynn-ai/genai/internal/model"
)

// LivenessSentinel is the exact body Ollama serves on GET /.
const LivenessSentinel = "Ollama is running"

// Probe steps, used as log fields and metric labels.
const (
	StepProcess = "process"
	StepAPI     = "api"
	StepModel   = "model"
)

// Status is the outcome of one health verification.
// ProcessRunning stays false when the process step is disabled.
type Status struct {
	ProcessRunning bool `json:"process_running"`
	APIReachable   bool `json:"api_reachable"`
	ModelLoaded    bool `json:"model_loaded"`
}

// Config configures the probe.
type Config struct {
	// RequiredModel must appear as a substring of some registry entry
	RequiredModel string

	// RequireProcess enables the local process listing step
	RequireProcess bool

	// ProcessMarker is searched in the process listing; empty picks one per OS
	ProcessMarker string

	// Timeout bounds each network step
	Timeout time.Duration
}

// ProcessLister returns the raw process table of the host.
type ProcessLister func(ctx context.Context) ([]byte, error)

// Probe runs the three-step upstream health verification.
type Probe struct {
	cfg       Config
	upstream  model.Inference
	processes ProcessLister
	logger    *slog.Logger
}

// NewProbe creates a probe. A nil lister uses the host's process table.
func NewProbe(upstream model.Inference, cfg Config, lister ProcessLister, logger *slog.Logger) *Probe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.ProcessMarker == "" {
		cfg.ProcessMarker = defaultProcessMarker()
	}
	if lister == nil {
		lister = listProcesses
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Probe{
		cfg:       cfg,
		upstream:  upstream,
		processes: lister,
		logger:    logger,
	}
}

// Check verifies process, liveness and model, in that order.
// The first failing step ends the check with a KindServiceUnavailable error.
func (p *Probe) Check(ctx context.Context) (*Status, error) {
	status := &Status{}

	if p.cfg.RequireProcess {
		running, err := p.processRunning(ctx)
		if err != nil {
			return status, p.fail(StepProcess, errors.Wrap(err, errors.KindServiceUnavailable, errors.CodeServiceDown,
				"Could not verify the inference process",
				"Check that the process table can be read"))
		}
		if !running {
			return status, p.fail(StepProcess, errors.Unavailable(errors.CodeServiceDown,
				"Ollama process not running",
				"Start the inference service: `ollama serve`"))
		}
		status.ProcessRunning = true
	}

	reachable, err := p.apiReachable(ctx)
	if err != nil {
		return status, p.fail(StepAPI, errors.Wrap(err, errors.KindServiceUnavailable, errors.CodeServiceDown,
			"AI service unreachable",
			"Check if Ollama is running",
			"Restart the Ollama service"))
	}
	if !reachable {
		return status, p.fail(StepAPI, errors.Unavailable(errors.CodeServiceDown,
			"Invalid Ollama response",
			fmt.Sprintf("Check that %s points at an Ollama server", p.upstream.Host())))
	}
	status.APIReachable = true

	loaded, err := p.modelLoaded(ctx)
	if err != nil {
		return status, p.fail(StepModel, errors.Wrap(err, errors.KindServiceUnavailable, errors.CodeServiceDown,
			"Model registry unreachable",
			"Restart the Ollama service"))
	}
	if !loaded {
		return status, p.fail(StepModel, errors.NewBuilder(errors.CodeModelNotLoaded,
			fmt.Sprintf("%s model not loaded", p.cfg.RequiredModel)).
			Kind(errors.KindServiceUnavailable).
			WithRemediation(fmt.Sprintf("Download model: `ollama pull %s`", p.cfg.RequiredModel)).
			WithRemediation("Verify models are downloaded (ollama list)").
			WithContext("model", p.cfg.RequiredModel).
			Build())
	}
	status.ModelLoaded = true

	return status, nil
}

// Snapshot reports every step without failing, for status pages.
// The network steps run concurrently.
func (p *Probe) Snapshot(ctx context.Context) *Status {
	status := &Status{}
	g, gctx := errgroup.WithContext(ctx)

	if p.cfg.RequireProcess {
		g.Go(func() error {
			running, err := p.processRunning(gctx)
			status.ProcessRunning = err == nil && running
			return nil
		})
	}
	g.Go(func() error {
		reachable, err := p.apiReachable(gctx)
		status.APIReachable = err == nil && reachable
		return nil
	})
	g.Go(func() error {
		loaded, err := p.modelLoaded(gctx)
		status.ModelLoaded = err == nil && loaded
		return nil
	})

	_ = g.Wait()
	return status
}

// RequiredModel returns the model substring the probe looks for.
func (p *Probe) RequiredModel() string {
	return p.cfg.RequiredModel
}

// Host returns the probed inference host.
func (p *Probe) Host() string {
	return p.upstream.Host()
}

func (p *Probe) processRunning(ctx context.Context) (bool, error) {
	out, err := p.processes(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(string(out), p.cfg.ProcessMarker), nil
}

func (p *Probe) apiReachable(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	body, err := p.upstream.Ping(ctx)
	if err != nil {
		return false, err
	}
	return body == LivenessSentinel, nil
}

func (p *Probe) modelLoaded(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	tags, err := p.upstream.Tags(ctx)
	if err != nil {
		return false, err
	}
	for _, tag := range tags {
		if strings.Contains(tag.Name, p.cfg.RequiredModel) {
			return true, nil
		}
	}
	return false, nil
}

func (p *Probe) fail(step string, err *errors.GatewayError) error {
	metrics.ProbeFailures.WithLabelValues(step).Inc()
	p.logger.Error("[SYSTEM_CHECK_FAILED]", "step", step, "error", err.Error())
	return err
}

func defaultProcessMarker() string {
	if runtime.GOOS == "windows" {
		return "ollama.exe"
	}
	return "ollama serve"
}

func listProcesses(ctx context.Context) ([]byte, error) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.CommandContext(ctx, "tasklist")
	default:
		cmd = exec.CommandContext(ctx, "ps", "aux")
	}

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	return output, nil
}
