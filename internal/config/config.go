// Package config loads Agentboard's YAML configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/agentboard/agentboard/internal/logging"
	"github.com/agentboard/agentboard/internal/server"
)

// Config represents the main configuration
type Config struct {
	Server    *server.Config   `yaml:"server"`
	Database  *DatabaseConfig  `yaml:"database"`
	Autopilot *AutopilotConfig `yaml:"autopilot"`
	Logging   *logging.Config  `yaml:"logging"`
}

// DatabaseConfig holds storage settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AutopilotConfig holds loop settings. The enable switch and manager are
// runtime state set through the API, not config file material.
type AutopilotConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: &server.Config{
			Host: "127.0.0.1",
			Port: 8000,
		},
		Database: &DatabaseConfig{
			Path: "agentboard.db",
		},
		Autopilot: &AutopilotConfig{
			IntervalSeconds: 5,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads configuration from the given path, filling in defaults for
// missing sections. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Server == nil {
		cfg.Server = def.Server
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = def.Server.Host
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Database == nil {
		cfg.Database = def.Database
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = def.Database.Path
	}
	if cfg.Autopilot == nil {
		cfg.Autopilot = def.Autopilot
	}
	if cfg.Autopilot.IntervalSeconds == 0 {
		cfg.Autopilot.IntervalSeconds = def.Autopilot.IntervalSeconds
	}
	if cfg.Logging == nil {
		cfg.Logging = def.Logging
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Autopilot.IntervalSeconds < 0 {
		return fmt.Errorf("invalid autopilot interval: %d", cfg.Autopilot.IntervalSeconds)
	}
	return nil
}
