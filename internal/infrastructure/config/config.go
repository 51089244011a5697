// Package config loads the listener configuration from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"go-stream-listener/internal/infrastructure/logger"
	"go-stream-listener/internal/infrastructure/transport"
)

// Config is the full listener configuration.
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Log         logger.Config   `yaml:"log"`
	Transport   TransportConfig `yaml:"transport"`
	HistorySize int             `yaml:"history_size"`
	Streams     []StreamConfig  `yaml:"streams"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// TransportConfig holds the options passed to each transport acquirer.
type TransportConfig struct {
	SSE       transport.SSEOptions       `yaml:"sse"`
	WebSocket transport.WebSocketOptions `yaml:"websocket"`
}

// StreamConfig describes an upstream stream opened at boot.
type StreamConfig struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	StopOn      string `yaml:"stop_on"`
	MaxEvents   int    `yaml:"max_events"`
	StopOnError bool   `yaml:"stop_on_error"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server:      ServerConfig{Addr: ":8080"},
		Log:         *logger.NewDefaultConfig(),
		HistorySize: 256,
	}
}

// Load reads path (if non-empty) over the defaults, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("STREAM_LISTENER_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := logger.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("LOG_LEVEL: %w", err)
		}
		c.Log.Level = level
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		c.Log.Output = v
	}
	if v := os.Getenv("LOG_FILE_PATH"); v != "" {
		c.Log.FilePath = v
	}
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.HistorySize <= 0 {
		errs = append(errs, fmt.Errorf("history_size must be positive, got %d", c.HistorySize))
	}
	names := make(map[string]bool)
	for i, s := range c.Streams {
		if s.Address == "" {
			errs = append(errs, fmt.Errorf("streams[%d].address is required", i))
		}
		if s.MaxEvents < 0 {
			errs = append(errs, fmt.Errorf("streams[%d].max_events must not be negative", i))
		}
		if s.Name != "" && names[s.Name] {
			errs = append(errs, fmt.Errorf("streams[%d].name %q is duplicated", i, s.Name))
		}
		names[s.Name] = true
	}
	return errors.Join(errs...)
}
