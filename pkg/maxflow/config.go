package maxflow

import (
	"github.com/maxflow-ai/maxflow-go/internal/app/config"
)

// Config re-exports the configuration struct so callers can construct or
// modify it programmatically.
type Config = config.Config

type (
	// APIConfig holds endpoint, credentials, and transport tuning.
	APIConfig = config.APIConfig
	// PushConfig controls debounce timing defaults.
	PushConfig = config.PushConfig
	// JournalConfig configures the optional on-disk pulse journal.
	JournalConfig = config.JournalConfig
	// MetricsConfig configures the optional metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// Duration is the YAML-friendly duration used in config structs.
	Duration = config.Duration
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// Conf loads configuration and builds a client in one step.
func Conf(path string, opts ...Option) (*Client, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}
