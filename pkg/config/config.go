// Package config provides layered configuration for the runnerchat client.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. .env file in the working directory (never overrides set variables)
//  3. YAML config file (discovered or explicitly specified)
//  4. Environment variable overrides (RUNNERCHAT_ prefix, OPENAI_ fallbacks)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"log/slog"
	"time"

	"github.com/rhuss/runnerchat/pkg/debug"
)

// Default values for a local runner.
const (
	DefaultBaseURL  = "http://localhost:11434/v1"
	DefaultAPIKey   = "not-needed"
	DefaultModel    = "llama4:scout"
	DefaultTimeout  = 120 * time.Second
	DefaultLogLevel = "info"
)

// Config holds all configuration for the runnerchat client.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Generation GenerationConfig `yaml:"generation"`
	Log        LogConfig        `yaml:"log"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// BackendConfig holds the endpoint the client talks to.
type BackendConfig struct {
	BaseURL    string        `yaml:"base_url"`     // default: http://localhost:11434/v1
	APIKey     string        `yaml:"api_key"`      // default: "not-needed"
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Model      string        `yaml:"model"`        // default: llama4:scout
	Timeout    time.Duration `yaml:"timeout"`      // blocking calls only, default: 120s
}

// GenerationConfig holds per-call defaults used by the CLI.
type GenerationConfig struct {
	SystemPrompt string   `yaml:"system_prompt"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    *int     `yaml:"max_tokens"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
	Debug string `yaml:"debug"` // comma-separated debug categories: http, stream, config, all
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile, when set, receives the process metrics in Prometheus text
	// format when the CLI exits.
	Textfile string `yaml:"textfile"`
}

// Defaults returns a Config with all default values filled in. The API key
// default is applied after file references are resolved, so that an
// api_key_file can supply it.
func Defaults() Config {
	return Config{
		Backend: BackendConfig{
			BaseURL: DefaultBaseURL,
			Model:   DefaultModel,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// SlogLevel maps the configured log level to a slog.Level. Unknown values
// map to info.
func (c *Config) SlogLevel() slog.Level {
	return debug.ParseLevel(c.Log.Level)
}
