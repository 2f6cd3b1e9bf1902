package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML accepts strings like "360ms" as well
// as plain numbers, which are read as seconds.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = 0
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = 0
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return fmt.Errorf("invalid duration value: %q", node.Value)
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

type Config struct {
	API     APIConfig     `yaml:"api"`
	Push    PushConfig    `yaml:"push"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
}

type APIConfig struct {
	Endpoint  string   `yaml:"endpoint"`
	AppID     string   `yaml:"app_id"`
	APIKey    string   `yaml:"api_key"`
	UserAgent string   `yaml:"user_agent"`
	Timeout   Duration `yaml:"timeout"`
	RateLimit float64  `yaml:"rate_limit"`
	RateBurst int      `yaml:"rate_burst"`
}

type PushConfig struct {
	Quiet           Duration `yaml:"quiet"`
	MaxWait         Duration `yaml:"max_wait"`
	DispatchTimeout Duration `yaml:"dispatch_timeout"`
}

type JournalConfig struct {
	// Dir enables the on-disk pulse journal when set.
	Dir string `yaml:"dir"`
}

type MetricsConfig struct {
	// Addr enables the /metrics + /healthz server when set.
	Addr string `yaml:"addr"`
}

// Load reads YAML from disk, layers environment overrides on top, and applies
// defaults. A .env file next to the process is picked up when present.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	_ = godotenv.Load()
	cfg.fromEnv()
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fromEnv lets credentials live outside the config file.
func (c *Config) fromEnv() {
	if v := os.Getenv("MAXFLOW_ENDPOINT"); v != "" {
		c.API.Endpoint = v
	}
	if v := os.Getenv("MAXFLOW_APP_ID"); v != "" {
		c.API.AppID = v
	}
	if v := os.Getenv("MAXFLOW_API_KEY"); v != "" {
		c.API.APIKey = v
	}
}

func (c *Config) ApplyDefaults() {
	if c.Push.Quiet == 0 {
		c.Push.Quiet = Duration(360 * time.Millisecond)
	}
	if c.Push.MaxWait == 0 {
		c.Push.MaxWait = Duration(time.Second)
	}
	if c.Push.DispatchTimeout == 0 {
		c.Push.DispatchTimeout = Duration(10 * time.Second)
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(10 * time.Second)
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "maxflow-go"
	}
}

func (c *Config) Validate() error {
	if c.API.Endpoint == "" {
		return fmt.Errorf("api.endpoint is required")
	}
	if c.API.AppID == "" {
		return fmt.Errorf("api.app_id is required")
	}
	if c.API.APIKey == "" {
		return fmt.Errorf("api.api_key is required")
	}
	if c.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must be >= 0")
	}
	return nil
}
