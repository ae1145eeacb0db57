package yaml_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/chat/yaml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	t.Setenv("CHAT_TEST_API_KEY", "sk-test")

	path := writeTemp(t, `listen: ":9090"
shutdown_timeout: 5s
log:
  level: debug
  format: console
upstream:
  provider: gemini
  api_key: ${CHAT_TEST_API_KEY}
  model: gemini-2.5-pro
  max_tokens: 2048
  base_url: ${CHAT_TEST_BASE_URL:-https://example.com}
  system_prompt: Be brief.
cors:
  allowed_origins:
    - https://app.example.com
rate_limit:
  rate: 0.5
  burst: 3
client:
  url: ws://localhost:9090/chat/ws
  transport: websocket
  max_tokens: 100
  timeout: 2m
`)
	cfg, err := yaml.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Listen)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, yaml.LogConfig{Level: "debug", Format: "console"}, cfg.Log)
	assert.Equal(t, yaml.UpstreamConfig{
		Provider:     "gemini",
		APIKey:       "sk-test",
		Model:        "gemini-2.5-pro",
		MaxTokens:    2048,
		BaseURL:      "https://example.com",
		SystemPrompt: "Be brief.",
	}, cfg.Upstream)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, yaml.RateLimit{Rate: 0.5, Burst: 3}, cfg.RateLimit)
	assert.Equal(t, "websocket", cfg.Client.Transport)
	assert.Equal(t, 2*time.Minute, cfg.Client.Timeout.Duration)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := yaml.Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config file not found")
	})

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"invalid yaml", "listen: [", "invalid config"},
		{"unknown key", "lisen: :80\n", "invalid config"},
		{"bad duration", "shutdown_timeout: soon\n", "invalid duration"},
		{"unknown provider", "upstream:\n  provider: openai\n", "unknown provider"},
		{"unknown transport", "client:\n  transport: grpc\n", "unknown transport"},
		{"negative max tokens", "upstream:\n  max_tokens: -1\n", "must be non-negative"},
		{"rate without burst", "rate_limit:\n  rate: 1\n", "burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := yaml.Load(writeTemp(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	t.Parallel()
	cfg, err := yaml.Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, yaml.Config{}, *cfg)
}

func TestConfig_WithDefaults(t *testing.T) {
	t.Parallel()
	cfg := yaml.Config{Listen: ":1234"}.WithDefaults()

	assert.Equal(t, ":1234", cfg.Listen)
	assert.Equal(t, yaml.DefaultShutdownTimeout, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "anthropic", cfg.Upstream.Provider)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, yaml.DefaultClientURL, cfg.Client.URL)
	assert.Equal(t, "sse", cfg.Client.Transport)
}

func TestConfig_WithDefaults_WebSocketURL(t *testing.T) {
	t.Parallel()
	cfg := yaml.Config{Client: yaml.ClientConfig{Transport: "websocket"}}.WithDefaults()
	assert.Equal(t, yaml.DefaultWebSocketURL, cfg.Client.URL)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHAT_TEST_SET", "value")
	t.Setenv("CHAT_TEST_EMPTY", "")

	tests := []struct {
		input string
		want  string
	}{
		{"${CHAT_TEST_SET}", "value"},
		{"${CHAT_TEST_UNSET}", ""},
		{"${CHAT_TEST_UNSET:-fallback}", "fallback"},
		{"${CHAT_TEST_EMPTY:-fallback}", "fallback"},
		{"${CHAT_TEST_SET:-fallback}", "value"},
		{"prefix-${CHAT_TEST_SET}-suffix", "prefix-value-suffix"},
		{"$CHAT_TEST_SET", "$CHAT_TEST_SET"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, yaml.ExpandEnv(tt.input), tt.input)
	}
}
