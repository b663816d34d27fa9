package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/flynn-ai/genai/internal/errors"
	"github.com/flynn-ai/genai/internal/model"
)

type fakeInference struct {
	pingBody string
	pingErr  error
	tags     []model.Tag
	tagsErr  error
	pings    atomic.Int32
	tagCalls atomic.Int32
}

func (f *fakeInference) Ping(ctx context.Context) (string, error) {
	f.pings.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("ping without deadline")
	}
	return f.pingBody, f.pingErr
}

func (f *fakeInference) Tags(ctx context.Context) ([]model.Tag, error) {
	f.tagCalls.Add(1)
	return f.tags, f.tagsErr
}

func (f *fakeInference) Host() string { return "http://ollama.test" }

func healthyInference() *fakeInference {
	return &fakeInference{
		pingBody: LivenessSentinel,
		tags:     []model.Tag{{Name: "llama3:8b"}, {Name: "mistral:latest"}},
	}
}

func processTable(out string) ProcessLister {
	return func(context.Context) ([]byte, error) { return []byte(out), nil }
}

func newTestProbe(up model.Inference, lister ProcessLister) *Probe {
	return NewProbe(up, Config{
		RequiredModel:  "mistral",
		RequireProcess: true,
		ProcessMarker:  "ollama serve",
		Timeout:        time.Second,
	}, lister, nil)
}

func TestCheckHealthy(t *testing.T) {
	up := healthyInference()
	probe := newTestProbe(up, processTable("root 1 ollama serve\n"))

	status, err := probe.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Status{ProcessRunning: true, APIReachable: true, ModelLoaded: true}, status)
}

func TestCheckNeverCaches(t *testing.T) {
	up := healthyInference()
	probe := newTestProbe(up, processTable("ollama serve"))

	for i := 0; i < 3; i++ {
		_, err := probe.Check(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), up.pings.Load())
	assert.Equal(t, int32(3), up.tagCalls.Load())

	up.tags = nil
	_, err := probe.Check(context.Background())
	assert.Error(t, err, "a model unloaded after a healthy check must be noticed")
}

func TestCheckFailures(t *testing.T) {
	tests := []struct {
		name     string
		lister   ProcessLister
		mutate   func(*fakeInference)
		wantCode string
		wantMsg  string
	}{
		{
			name:     "process missing",
			lister:   processTable("root 1 sshd\n"),
			wantCode: apperrors.CodeServiceDown,
			wantMsg:  "process not running",
		},
		{
			name: "process listing fails",
			lister: func(context.Context) ([]byte, error) {
				return nil, errors.New("ps: not found")
			},
			wantCode: apperrors.CodeServiceDown,
			wantMsg:  "Could not verify",
		},
		{
			name:     "api unreachable",
			lister:   processTable("ollama serve"),
			mutate:   func(f *fakeInference) { f.pingErr = errors.New("connection refused") },
			wantCode: apperrors.CodeServiceDown,
			wantMsg:  "unreachable",
		},
		{
			name:     "wrong sentinel",
			lister:   processTable("ollama serve"),
			mutate:   func(f *fakeInference) { f.pingBody = "Ollama is running\n" },
			wantCode: apperrors.CodeServiceDown,
			wantMsg:  "Invalid Ollama response",
		},
		{
			name:     "model registry fails",
			lister:   processTable("ollama serve"),
			mutate:   func(f *fakeInference) { f.tagsErr = errors.New("boom") },
			wantCode: apperrors.CodeServiceDown,
			wantMsg:  "registry",
		},
		{
			name:     "model not loaded",
			lister:   processTable("ollama serve"),
			mutate:   func(f *fakeInference) { f.tags = []model.Tag{{Name: "llama3:8b"}} },
			wantCode: apperrors.CodeModelNotLoaded,
			wantMsg:  "mistral model not loaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := healthyInference()
			if tt.mutate != nil {
				tt.mutate(up)
			}
			probe := newTestProbe(up, tt.lister)

			_, err := probe.Check(context.Background())
			require.Error(t, err)

			gwErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindServiceUnavailable, gwErr.Kind)
			assert.Equal(t, tt.wantCode, gwErr.Code)
			assert.Contains(t, gwErr.Message, tt.wantMsg)
			assert.NotEmpty(t, gwErr.Remediation)
		})
	}
}

func TestCheckStopsAtFirstFailure(t *testing.T) {
	up := healthyInference()
	probe := newTestProbe(up, processTable("nothing here"))

	_, err := probe.Check(context.Background())
	require.Error(t, err)
	assert.Zero(t, up.pings.Load())
	assert.Zero(t, up.tagCalls.Load())
}

func TestCheckWithoutProcessStep(t *testing.T) {
	up := healthyInference()
	probe := NewProbe(up, Config{RequiredModel: "mistral"}, func(context.Context) ([]byte, error) {
		t.Fatal("process table must not be read")
		return nil, nil
	}, nil)

	status, err := probe.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, status.ProcessRunning)
	assert.True(t, status.ModelLoaded)
}

func TestSnapshotNeverFails(t *testing.T) {
	up := healthyInference()
	up.pingErr = errors.New("down")
	probe := newTestProbe(up, processTable("ollama serve"))

	status := probe.Snapshot(context.Background())
	assert.True(t, status.ProcessRunning)
	assert.False(t, status.APIReachable)
	assert.True(t, status.ModelLoaded)
	assert.Equal(t, "mistral", probe.RequiredModel())
	assert.Equal(t, "http://ollama.test", probe.Host())
}
