// Command genai serves the chat and image generation API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flynn-ai/genai/internal/config"
	"github.com/flynn-ai/genai/internal/gateway"
	"github.com/flynn-ai/genai/internal/handler"
	"github.com/flynn-ai/genai/internal/health"
	"github.com/flynn-ai/genai/internal/middleware"
	"github.com/flynn-ai/genai/internal/model"
	"github.com/flynn-ai/genai/internal/server"
	"github.com/flynn-ai/genai/internal/stats"
	"github.com/flynn-ai/genai/internal/store"
)

func main() {
	configPath := flag.String("config", "genai.toml", "path to genai.toml or genai.yaml")
	addr := flag.String("addr", "", "override listen address")
	writeConfig := flag.String("write-config", "", "write the default configuration to this path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.Default().Save(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("wrote %s\n", *writeConfig)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Log.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Attempt deadlines come from the gateway, so the shared client has none.
	httpClient := &http.Client{}

	ollama := model.NewOllamaClient(&model.OllamaConfig{
		BaseURL:     cfg.Ollama.Host,
		Model:       cfg.Ollama.Model,
		Temperature: cfg.Ollama.Temperature,
		ContextSize: cfg.Ollama.ContextSize,
	}, httpClient)

	deepai := model.NewDeepAIClient(&model.DeepAIConfig{
		APIKey:  cfg.Image.APIKey,
		BaseURL: cfg.Image.BaseURL,
	}, httpClient)
	if !deepai.IsAvailable() {
		logger.Warn("image generation disabled: no api key configured")
	}

	probe := health.NewProbe(ollama, health.Config{
		RequiredModel:  cfg.Health.RequiredModel,
		RequireProcess: cfg.Health.RequireProcess,
		ProcessMarker:  cfg.Health.ProcessMarker,
		Timeout:        cfg.Health.Timeout,
	}, nil, logger)

	// The generation log is best-effort: a broken store never stops the server.
	var (
		recorder gateway.Recorder
		history  handler.HistoryLister
	)
	if cfg.Store.Path != "" {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			logger.Error("[DB_SAFE_ERROR]", "error", err.Error(), "path", cfg.Store.Path)
		} else {
			defer st.Close()
			recorder, history = st, st
			logger.Info("generation log enabled", "path", cfg.Store.Path)
		}
	}

	gw := gateway.New(gateway.Config{
		Timeout:       cfg.Gateway.Timeout,
		MaxRetries:    cfg.Gateway.MaxRetries,
		RetryDelay:    cfg.Gateway.RetryDelay,
		ImageTimeout:  cfg.Image.Timeout,
		RecordTimeout: cfg.Gateway.RecordTimeout,
	}, gateway.Deps{
		Text:     ollama,
		Image:    deepai,
		Probe:    probe,
		Recorder: recorder,
		Stats:    stats.NewCollector(),
		Logger:   logger,
	})
	defer gw.Wait()

	tokens := func(token string) (middleware.Identity, bool) {
		t, ok := cfg.LookupToken(token)
		return middleware.Identity{UserID: t.UserID, Role: t.Role}, ok
	}
	if len(cfg.Auth.Tokens) == 0 {
		logger.Warn("auth: no tokens configured, protected routes will reject every request")
	}

	h := server.SetupMux(server.Deps{
		Gateway:      gw,
		History:      history,
		Tokens:       tokens,
		Dev:          cfg.IsDevelopment(),
		Logger:       logger,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})
	srv := server.New(cfg.Server.Addr, h, server.Timeouts{
		Read:  cfg.Server.ReadTimeout,
		Write: cfg.Server.WriteTimeout,
	}, logger)

	ln, err := server.Listen(cfg.Server.Addr, cfg.Server.MaxConnections)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("genai listening",
			"addr", ln.Addr().String(),
			"ollama", cfg.Ollama.Host,
			"model", cfg.Ollama.Model,
			"env", cfg.Server.Env,
		)
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	start := time.Now()
	gw.Wait()
	logger.Info("server stopped", "drain", time.Since(start).Round(time.Millisecond))
	return nil
}
