// Package yaml loads the chat configuration file.
package yaml

import (
	"fmt"
	"time"
)

// Config is the configuration file. Zero values mean "use the default";
// [Config.WithDefaults] fills them in.
type Config struct {
	Listen          string         `yaml:"listen"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
	Log             LogConfig      `yaml:"log"`
	Upstream        UpstreamConfig `yaml:"upstream"`
	CORS            CORSConfig     `yaml:"cors"`
	RateLimit       RateLimit      `yaml:"rate_limit"`
	Client          ClientConfig   `yaml:"client"`
}

// LogConfig selects the logger level and encoding.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
	// File receives the terminal UI's logs, which cannot share the screen
	// with stderr. Empty disables TUI logging.
	File string `yaml:"file"`
}

// UpstreamConfig selects the model provider the relay server talks to.
type UpstreamConfig struct {
	Provider     string `yaml:"provider"` // anthropic or gemini
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	BaseURL      string `yaml:"base_url"`
	SystemPrompt string `yaml:"system_prompt"`
}

// CORSConfig lists origins allowed to call the relay from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimit is a per-client token bucket. A zero Rate disables limiting.
type RateLimit struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// ClientConfig configures the send and tui commands.
type ClientConfig struct {
	URL       string   `yaml:"url"`
	Transport string   `yaml:"transport"` // sse or websocket
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// Defaults.
const (
	DefaultListen          = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultProvider        = "anthropic"
	DefaultClientURL       = "http://localhost:8080/chat"
	DefaultWebSocketURL    = "ws://localhost:8080/chat/ws"
	DefaultClientTransport = "sse"
)

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.ShutdownTimeout.Duration == 0 {
		c.ShutdownTimeout.Duration = DefaultShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Upstream.Provider == "" {
		c.Upstream.Provider = DefaultProvider
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if c.Client.Transport == "" {
		c.Client.Transport = DefaultClientTransport
	}
	if c.Client.URL == "" {
		c.Client.URL = DefaultClientURL
		if c.Client.Transport == "websocket" {
			c.Client.URL = DefaultWebSocketURL
		}
	}
	return c
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Upstream.Provider {
	case "", "anthropic", "gemini":
	default:
		return fmt.Errorf("upstream.provider: unknown provider %q", c.Upstream.Provider)
	}
	switch c.Client.Transport {
	case "", "sse", "websocket":
	default:
		return fmt.Errorf("client.transport: unknown transport %q", c.Client.Transport)
	}
	if c.Upstream.MaxTokens < 0 {
		return fmt.Errorf("upstream.max_tokens: must be non-negative, got %d", c.Upstream.MaxTokens)
	}
	if c.Client.MaxTokens < 0 {
		return fmt.Errorf("client.max_tokens: must be non-negative, got %d", c.Client.MaxTokens)
	}
	if c.RateLimit.Rate < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: rate and burst must be non-negative")
	}
	if c.RateLimit.Rate > 0 && c.RateLimit.Burst == 0 {
		return fmt.Errorf("rate_limit.burst: must be positive when rate is set")
	}
	return nil
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
