package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "GENAI_ADDR", "GENAI_ENV", "OLLAMA_HOST", "GENAI_MODEL", "GENAI_TIMEOUT",
		"GENAI_MAX_RETRIES", "GENAI_RETRY_DELAY", "DEEPAI_API_KEY", "GENAI_DB_PATH", "GENAI_LOG_LEVEL",
		"GENAI_WRITE_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, "mistral:latest", cfg.Ollama.Model)
	assert.Equal(t, "mistral", cfg.Health.RequiredModel)
	assert.Equal(t, 60*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 3, cfg.Gateway.MaxRetries)
	assert.Equal(t, time.Second, cfg.Gateway.RetryDelay)
	assert.Equal(t, 2*time.Second, cfg.Health.Timeout)
	assert.Equal(t, 45*time.Second, cfg.Image.Timeout)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Ollama, cfg.Ollama)
}

func TestLoadTOML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "genai.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
addr = ":8080"
env = "development"

[ollama]
model = "llama3:8b"

[gateway]
timeout = "90s"
max_retries = 1

[health]
required_model = "llama3"
require_process = false

[[auth.tokens]]
token = "secret"
user_id = "u1"
role = "admin"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "llama3:8b", cfg.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Host)
	assert.Equal(t, 90*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 1, cfg.Gateway.MaxRetries)
	assert.False(t, cfg.Health.RequireProcess)

	tok, ok := cfg.LookupToken("secret")
	require.True(t, ok)
	assert.Equal(t, "u1", tok.UserID)
	_, ok = cfg.LookupToken("wrong")
	assert.False(t, ok)
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "genai.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ollama:
  host: http://gpu-box:11434
gateway:
  retry_delay: 250ms
log:
  level: debug
  format: json
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", cfg.Ollama.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.Gateway.RetryDelay)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, LogFormatJSON, cfg.Log.Format)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("OLLAMA_HOST", "http://env-host:11434")
	t.Setenv("GENAI_TIMEOUT", "30000")
	t.Setenv("GENAI_RETRY_DELAY", "2s")
	t.Setenv("GENAI_MAX_RETRIES", "5")
	t.Setenv("DEEPAI_API_KEY", "k")
	t.Setenv("PORT", "7000")

	path := filepath.Join(t.TempDir(), "genai.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ollama]\nhost = \"http://file-host:11434\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://env-host:11434", cfg.Ollama.Host)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Gateway.RetryDelay)
	assert.Equal(t, 5, cfg.Gateway.MaxRetries)
	assert.Equal(t, "k", cfg.Image.APIKey)
	assert.Equal(t, ":7000", cfg.Server.Addr)
}

func TestEnvInvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"GENAI_TIMEOUT", "soon"},
		{"GENAI_MAX_RETRIES", "many"},
		{"GENAI_RETRY_DELAY", "1 second"},
		{"GENAI_WRITE_TIMEOUT", "later"},
		{"PORT", "http"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"negative retries", func(c *Config) { c.Gateway.MaxRetries = -1 }, "max_retries"},
		{"zero timeout", func(c *Config) { c.Gateway.Timeout = 0 }, "gateway.timeout"},
		{"bad env", func(c *Config) { c.Server.Env = "staging" }, "server.env"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"empty model", func(c *Config) { c.Ollama.Model = "" }, "ollama.model"},
		{"write timeout below chat budget", func(c *Config) { c.Gateway.Timeout = 2 * time.Minute }, "server.write_timeout"},
		{"token without user", func(c *Config) { c.Auth.Tokens = []APIToken{{Token: "t"}} }, "auth.tokens[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestChatBudget(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4*time.Minute+3*time.Second, cfg.Gateway.AttemptBudget())
	assert.Equal(t, 4*time.Minute+9*time.Second, cfg.ChatBudget())

	cfg.Gateway.MaxRetries = 0
	assert.Equal(t, time.Minute, cfg.Gateway.AttemptBudget())

	cfg.Server.WriteTimeout = 0
	cfg.Gateway.Timeout = time.Hour
	assert.NoError(t, cfg.Validate(), "zero write timeout means unbounded")
}

func TestLongTimeoutNeedsLongerWrite(t *testing.T) {
	clearEnv(t)
	t.Setenv("GENAI_TIMEOUT", "120s")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.write_timeout 5m0s is shorter than the worst-case chat request 8m9s")

	t.Setenv("GENAI_WRITE_TIMEOUT", "10m")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Server.WriteTimeout)
	assert.GreaterOrEqual(t, cfg.Server.WriteTimeout, cfg.ChatBudget())
}

func TestSaveYAMLRoundTrip(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	cfg.Ollama.Model = "phi3:mini"
	cfg.Gateway.RetryDelay = 1500 * time.Millisecond

	path := filepath.Join(t.TempDir(), "nested", "genai.yml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "phi3:mini", loaded.Ollama.Model)
	assert.Equal(t, 1500*time.Millisecond, loaded.Gateway.RetryDelay)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "data", "genai.db"), expandHome("~/data/genai.db"))
	assert.Equal(t, "/var/lib/genai.db", expandHome("/var/lib/genai.db"))
	assert.Empty(t, expandHome(""))
}
