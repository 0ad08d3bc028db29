// Package config loads the ts3query CLI configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values used when neither the file nor a flag sets a field.
const (
	DefaultHost           = "localhost"
	DefaultPort           = 10011
	DefaultDialTimeout    = 5 * time.Second
	DefaultCommandTimeout = 30 * time.Second
	DefaultBannerLines    = 2
	DefaultLogLevel       = "info"
	DefaultHistoryFile    = ".ts3query_history"
	DefaultHistorySize    = 500
)

// Config is the complete CLI configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	REPL    REPLConfig    `yaml:"repl"`
}

// ServerConfig selects the server and bounds connect and command waits.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	BannerLines    int           `yaml:"banner_lines"`
}

// LogConfig controls the logger built by the logging package.
type LogConfig struct {
	Level string `yaml:"level"`
	// File switches logging from stderr to a rotated JSON file.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address of the /metrics endpoint. Empty disables it.
	Addr string `yaml:"addr"`
}

// REPLConfig holds the interactive REPL settings.
type REPLConfig struct {
	HistoryFile string `yaml:"history_file"`
	HistorySize int    `yaml:"history_size"`
	// Events prints notifications received while the REPL is running.
	Events bool `yaml:"events"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           DefaultHost,
			Port:           DefaultPort,
			DialTimeout:    DefaultDialTimeout,
			CommandTimeout: DefaultCommandTimeout,
			BannerLines:    DefaultBannerLines,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		REPL: REPLConfig{
			HistoryFile: defaultHistoryPath(),
			HistorySize: DefaultHistorySize,
			Events:      true,
		},
	}
}

// Load reads path over the defaults. An empty path or a missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.REPL.HistoryFile = expandHome(cfg.REPL.HistoryFile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Server.DialTimeout < 0 {
		return fmt.Errorf("server.dial_timeout must not be negative")
	}
	if c.Server.CommandTimeout < 0 {
		return fmt.Errorf("server.command_timeout must not be negative")
	}
	if c.Server.BannerLines < 1 {
		return fmt.Errorf("server.banner_lines must be at least 1")
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	if c.REPL.HistorySize < 0 {
		return fmt.Errorf("repl.history_size must not be negative")
	}
	return nil
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultHistoryFile)
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
