package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "hublink.yaml"

	// DefaultCallTimeout bounds each tracked hub call.
	DefaultCallTimeout = 5 * time.Second

	// DefaultReconnectDelay is the pause before a recovery attempt.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultLogLevel is the slog level name used when unset.
	DefaultLogLevel = "info"
)

// Config is the hublink.yaml schema.
type Config struct {
	// URL is the endpoint base, e.g. "https://example.com/signalr".
	URL string `yaml:"url"`

	// Hubs are the hub names announced on every handshake exchange.
	Hubs []string `yaml:"hubs"`

	// Protocol is the clientProtocol value sent on every exchange.
	// Empty means the client default.
	Protocol string `yaml:"protocol,omitempty"`

	// Query is appended to every exchange and to the transport URL.
	Query map[string]string `yaml:"query,omitempty"`

	// Headers are sent on every exchange and on the transport dial.
	Headers map[string]string `yaml:"headers,omitempty"`

	// CallTimeout bounds each tracked hub call.
	CallTimeout time.Duration `yaml:"call_timeout,omitempty"`

	// ReconnectDelay is the pause before each recovery attempt.
	ReconnectDelay time.Duration `yaml:"reconnect_delay,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level,omitempty"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// New returns a Config with defaults applied.
func New() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration from dir, looking for hublink.yaml.
// A missing file yields the defaults, not an error.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads the configuration from path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.configPath = path
	cfg.applyDefaults()
	return cfg, nil
}

// Path returns the path the config was loaded from, empty for defaults.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.CallTimeout <= 0 {
		c.CallTimeout = DefaultCallTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks the configuration for the fields the connection
// engine will reject anyway, so the CLI can fail before dialing.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https://")
	}
	if len(c.Hubs) == 0 {
		return fmt.Errorf("at least one hub is required")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// QueryValues converts the query map to url.Values.
func (c *Config) QueryValues() url.Values {
	if len(c.Query) == 0 {
		return nil
	}
	q := url.Values{}
	for k, v := range c.Query {
		q.Set(k, v)
	}
	return q
}

// HeaderValues converts the headers map to http.Header.
func (c *Config) HeaderValues() http.Header {
	if len(c.Headers) == 0 {
		return nil
	}
	h := http.Header{}
	for k, v := range c.Headers {
		h.Set(k, v)
	}
	return h
}

// SlogLevel maps the configured level name to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
