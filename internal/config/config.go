// Package config handles genai configuration loading and management.
package config

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".genai")

	return &Config{
		Server: ServerConfig{
			Addr:            ":5000",
			Env:             EnvProduction,
			MaxConnections:  256,
			MaxBodyBytes:    1 << 20,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Ollama: OllamaConfig{
			Host:        "http://localhost:11434",
			Model:       "mistral:latest",
			Temperature: 0.7,
			ContextSize: 2048,
		},
		Gateway: GatewayConfig{
			Timeout:       60 * time.Second,
			MaxRetries:    3,
			RetryDelay:    time.Second,
			RecordTimeout: 5 * time.Second,
		},
		Health: HealthConfig{
			RequiredModel:  "mistral",
			RequireProcess: true,
			Timeout:        2 * time.Second,
		},
		Image: ImageConfig{
			BaseURL: "https://api.deepai.org",
			Timeout: 45 * time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir, "genai.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: LogFormatText,
		},
	}
}

// Load loads the configuration from the given path, then applies
// environment overrides. A missing file yields defaults.
// Files ending in .yaml or .yml are parsed as YAML, anything else as TOML.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := unmarshal(configPath, data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
			}
		case os.IsNotExist(err):
			// Config file doesn't exist, keep defaults
		default:
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	cfg.Store.Path = expandHome(cfg.Store.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return toml.Unmarshal(data, cfg)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Save saves the configuration to the given path, in the format its extension names.
func (c *Config) Save(configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	if isYAML(configPath) {
		enc := yaml.NewEncoder(file)
		defer enc.Close()
		return enc.Encode(c)
	}
	return toml.NewEncoder(file).Encode(c)
}

type lookupFunc func(key string) (string, bool)

// applyEnv overrides file values with environment variables.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		if _, err := strconv.Atoi(v); err != nil {
			return fmt.Errorf("config: invalid PORT %q: %w", v, err)
		}
		cfg.Server.Addr = ":" + v
	}
	str("GENAI_ADDR", &cfg.Server.Addr)
	str("GENAI_ENV", &cfg.Server.Env)
	str("OLLAMA_HOST", &cfg.Ollama.Host)
	str("GENAI_MODEL", &cfg.Ollama.Model)
	str("DEEPAI_API_KEY", &cfg.Image.APIKey)
	str("GENAI_DB_PATH", &cfg.Store.Path)
	str("GENAI_LOG_LEVEL", &cfg.Log.Level)

	if v, ok := lookup("GENAI_TIMEOUT"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid GENAI_TIMEOUT %q: %w", v, err)
		}
		cfg.Gateway.Timeout = d
	}
	if v, ok := lookup("GENAI_WRITE_TIMEOUT"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid GENAI_WRITE_TIMEOUT %q: %w", v, err)
		}
		cfg.Server.WriteTimeout = d
	}
	if v, ok := lookup("GENAI_RETRY_DELAY"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid GENAI_RETRY_DELAY %q: %w", v, err)
		}
		cfg.Gateway.RetryDelay = d
	}
	if v, ok := lookup("GENAI_MAX_RETRIES"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid GENAI_MAX_RETRIES %q: %w", v, err)
		}
		cfg.Gateway.MaxRetries = n
	}
	return nil
}

// parseDuration accepts Go durations ("90s") or bare milliseconds ("60000").
func parseDuration(v string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(v)
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is empty")
	}
	if c.Server.Env != EnvDevelopment && c.Server.Env != EnvProduction {
		problems = append(problems, fmt.Sprintf("server.env %q is not development or production", c.Server.Env))
	}
	if c.Server.MaxConnections < 0 {
		problems = append(problems, "server.max_connections is negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		problems = append(problems, "server.max_body_bytes must be positive")
	}
	if c.Ollama.Host == "" {
		problems = append(problems, "ollama.host is empty")
	}
	if c.Ollama.Model == "" {
		problems = append(problems, "ollama.model is empty")
	}
	if c.Gateway.Timeout <= 0 {
		problems = append(problems, "gateway.timeout must be positive")
	}
	if c.Gateway.MaxRetries < 0 {
		problems = append(problems, "gateway.max_retries is negative")
	}
	if c.Gateway.RetryDelay < 0 {
		problems = append(problems, "gateway.retry_delay is negative")
	}
	if c.Server.WriteTimeout > 0 {
		if budget := c.ChatBudget(); c.Server.WriteTimeout < budget {
			problems = append(problems, fmt.Sprintf(
				"server.write_timeout %s is shorter than the worst-case chat request %s", c.Server.WriteTimeout, budget))
		}
	}
	if c.Health.RequiredModel == "" {
		problems = append(problems, "health.required_model is empty")
	}
	if c.Health.Timeout <= 0 {
		problems = append(problems, "health.timeout must be positive")
	}
	if c.Image.Timeout <= 0 {
		problems = append(problems, "image.timeout must be positive")
	}
	if c.Log.Format != LogFormatText && c.Log.Format != LogFormatJSON {
		problems = append(problems, fmt.Sprintf("log.format %q is not text or json", c.Log.Format))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		problems = append(problems, err.Error())
	}
	for i, t := range c.Auth.Tokens {
		if t.Token == "" || t.UserID == "" {
			problems = append(problems, fmt.Sprintf("auth.tokens[%d] needs token and user_id", i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ChatBudget is the worst-case duration of one chat request: the three
// sequential health steps plus every upstream attempt and retry delay.
// The server's write timeout must not cut it short.
func (c *Config) ChatBudget() time.Duration {
	return 3*c.Health.Timeout + c.Gateway.AttemptBudget()
}

// IsDevelopment reports whether error details may be exposed to callers.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == EnvDevelopment
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

// LookupToken returns the caller a bearer token belongs to.
func (c *Config) LookupToken(token string) (APIToken, bool) {
	if token == "" {
		return APIToken{}, false
	}
	for _, t := range c.Auth.Tokens {
		if subtle.ConstantTimeCompare([]byte(t.Token), []byte(token)) == 1 {
			return t, true
		}
	}
	return APIToken{}, false
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level %q is not debug, info, warn or error", s)
	}
	return level, nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, path[1:])
}
