// Package config provides configuration types for genai.
package config

import "time"

// Config represents the main genai configuration.
type Config struct {
	Server  ServerConfig  `toml:"server" yaml:"server"`
	Ollama  OllamaConfig  `toml:"ollama" yaml:"ollama"`
	Gateway GatewayConfig `toml:"gateway" yaml:"gateway"`
	Health  HealthConfig  `toml:"health" yaml:"health"`
	Image   ImageConfig   `toml:"image" yaml:"image"`
	Store   StoreConfig   `toml:"store" yaml:"store"`
	Log     LogConfig     `toml:"log" yaml:"log"`
	Auth    AuthConfig    `toml:"auth" yaml:"auth"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Addr            string        `toml:"addr" yaml:"addr"`
	Env             string        `toml:"env" yaml:"env"` // development, production
	MaxConnections  int           `toml:"max_connections" yaml:"max_connections"`
	MaxBodyBytes    int64         `toml:"max_body_bytes" yaml:"max_body_bytes"`
	ReadTimeout     time.Duration `toml:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
	CORSOrigins     []string      `toml:"cors_origins" yaml:"cors_origins"`
}

// OllamaConfig configures the text inference server.
type OllamaConfig struct {
	Host        string  `toml:"host" yaml:"host"`
	Model       string  `toml:"model" yaml:"model"`
	Temperature float64 `toml:"temperature" yaml:"temperature"`
	ContextSize int     `toml:"context_size" yaml:"context_size"`
}

// GatewayConfig configures attempts against the text upstream.
type GatewayConfig struct {
	Timeout       time.Duration `toml:"timeout" yaml:"timeout"`
	MaxRetries    int           `toml:"max_retries" yaml:"max_retries"`
	RetryDelay    time.Duration `toml:"retry_delay" yaml:"retry_delay"`
	RecordTimeout time.Duration `toml:"record_timeout" yaml:"record_timeout"`
}

// AttemptBudget is the longest a chat request can spend calling the text
// upstream: every attempt runs to its timeout and every retry waits its delay.
func (g GatewayConfig) AttemptBudget() time.Duration {
	retries := time.Duration(max(g.MaxRetries, 0))
	return (retries+1)*g.Timeout + retries*g.RetryDelay
}

// HealthConfig configures the pre-call health probe.
type HealthConfig struct {
	RequiredModel  string        `toml:"required_model" yaml:"required_model"`
	RequireProcess bool          `toml:"require_process" yaml:"require_process"`
	ProcessMarker  string        `toml:"process_marker" yaml:"process_marker"`
	Timeout        time.Duration `toml:"timeout" yaml:"timeout"`
}

// ImageConfig configures the text-to-image service.
type ImageConfig struct {
	APIKey  string        `toml:"api_key" yaml:"api_key"`
	BaseURL string        `toml:"base_url" yaml:"base_url"`
	Timeout time.Duration `toml:"timeout" yaml:"timeout"`
}

// StoreConfig configures the generation log. An empty path disables it.
type StoreConfig struct {
	Path string `toml:"path" yaml:"path"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // text, json
}

// AuthConfig lists the bearer tokens accepted by protected routes.
type AuthConfig struct {
	Tokens []APIToken `toml:"tokens" yaml:"tokens"`
}

// APIToken maps a static bearer token to a caller.
type APIToken struct {
	Token  string `toml:"token" yaml:"token"`
	UserID string `toml:"user_id" yaml:"user_id"`
	Role   string `toml:"role" yaml:"role"` // admin, member
}

// Environments.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)
