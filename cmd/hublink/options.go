package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/hublink-dev/hublink/internal/config"
	"github.com/hublink-dev/hublink/pkg/hublink"
)

// connectionFlags are the flags shared by every command that opens a
// connection. Flags override hublink.yaml.
type connectionFlags struct {
	configPath string
	url        string
	hubs       []string
	timeout    time.Duration
	logLevel   string
}

func (f *connectionFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.configPath, "config", "c", "", "Path to hublink.yaml (default ./hublink.yaml)")
	fs.StringVarP(&f.url, "url", "u", "", "Endpoint base URL (overrides config)")
	fs.StringSliceVar(&f.hubs, "hub", nil, "Hub name to announce (repeatable, overrides config)")
	fs.DurationVar(&f.timeout, "timeout", 0, "Call timeout (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// loadConfig merges the config file with the flag overrides.
func (f *connectionFlags) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.configPath != "" {
		cfg, err = config.LoadFile(f.configPath)
	} else {
		cfg, err = config.Load(".")
	}
	if err != nil {
		return nil, err
	}

	if f.url != "" {
		cfg.URL = f.url
	}
	if len(f.hubs) > 0 {
		cfg.Hubs = f.hubs
	}
	if f.timeout > 0 {
		cfg.CallTimeout = f.timeout
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newClient builds a client from the merged configuration.
func newClient(cfg *config.Config, metrics *hublink.Metrics) *hublink.Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	return hublink.New(hublink.Options{
		URL:            cfg.URL,
		Hubs:           cfg.Hubs,
		Query:          cfg.QueryValues(),
		Headers:        cfg.HeaderValues(),
		Protocol:       cfg.Protocol,
		CallTimeout:    cfg.CallTimeout,
		ReconnectDelay: cfg.ReconnectDelay,
		Logger:         logger,
		Metrics:        metrics,
	})
}
