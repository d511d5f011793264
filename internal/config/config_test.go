package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CallTimeout != DefaultCallTimeout {
		t.Errorf("call timeout = %v, want %v", cfg.CallTimeout, DefaultCallTimeout)
	}
	if cfg.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("reconnect delay = %v, want %v", cfg.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("log level = %q, want %q", cfg.LogLevel, DefaultLogLevel)
	}
	if cfg.Path() != "" {
		t.Errorf("path = %q, want empty", cfg.Path())
	}
}

func TestLoadParsesFields(t *testing.T) {
	dir := writeConfig(t, `
url: https://example.com/signalr
hubs:
  - chat
  - presence
protocol: "1.5"
query:
  tenant: acme
headers:
  Authorization: Bearer tok
call_timeout: 2s
reconnect_delay: 10s
log_level: debug
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.URL != "https://example.com/signalr" {
		t.Errorf("url = %q", cfg.URL)
	}
	if len(cfg.Hubs) != 2 || cfg.Hubs[0] != "chat" || cfg.Hubs[1] != "presence" {
		t.Errorf("hubs = %v", cfg.Hubs)
	}
	if cfg.CallTimeout != 2*time.Second {
		t.Errorf("call timeout = %v", cfg.CallTimeout)
	}
	if cfg.ReconnectDelay != 10*time.Second {
		t.Errorf("reconnect delay = %v", cfg.ReconnectDelay)
	}
	if got := cfg.QueryValues().Get("tenant"); got != "acme" {
		t.Errorf("query tenant = %q", got)
	}
	if got := cfg.HeaderValues().Get("Authorization"); got != "Bearer tok" {
		t.Errorf("authorization header = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := writeConfig(t, "url: [unterminated")
	if _, err := Load(dir); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing url", func(c *Config) { c.URL = "" }, true},
		{"bad scheme", func(c *Config) { c.URL = "ws://example.com" }, true},
		{"no hubs", func(c *Config) { c.Hubs = nil }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.URL = "https://example.com/signalr"
			cfg.Hubs = []string{"chat"}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Validate accepted an invalid config")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Validate: %v", err)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		cfg := &Config{LogLevel: tt.level}
		if got := cfg.SlogLevel(); got != tt.want {
			t.Errorf("SlogLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}
