package server

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full designaudit configuration.
type Config struct {
	Listen       string           `yaml:"listen"`
	DBPath       string           `yaml:"db_path"` // "" disables audit history
	AuditTimeout time.Duration    `yaml:"audit_timeout"`
	Capture      CaptureConfig    `yaml:"capture"`
	Classifier   ClassifierConfig `yaml:"classifier"`
	RateLimit    RateLimitConfig  `yaml:"rate_limit"`
	MCP          bool             `yaml:"mcp"` // mount the MCP streamable HTTP endpoint at /mcp
}

// CaptureConfig selects and tunes the page capturer.
type CaptureConfig struct {
	Mode              string        `yaml:"mode"` // browser | static
	RemoteURL         string        `yaml:"remote_url"`
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	SettleDelay       time.Duration `yaml:"settle_delay"`
	BlockedResources  []string      `yaml:"blocked_resources"`
	MemoryLimitMB     int           `yaml:"memory_limit_mb"`
	RecycleInterval   time.Duration `yaml:"recycle_interval"`
	Annotate          bool          `yaml:"annotate"` // draw rule findings onto the screenshot
}

// ClassifierConfig configures the screenshot classifier. An empty endpoint
// disables classification.
type ClassifierConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	Token     string        `yaml:"token"`
	InputSize int           `yaml:"input_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// RateLimitConfig is the per-client token bucket on /analyze.
type RateLimitConfig struct {
	PerSecond  float64 `yaml:"per_second"` // <0 disables
	Burst      int     `yaml:"burst"`
	TrustProxy bool    `yaml:"trust_proxy"` // key clients by X-Forwarded-For
}

// Capture modes.
const (
	ModeBrowser = "browser"
	ModeStatic  = "static"
)

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = ":3000"
	}
	if c.AuditTimeout <= 0 {
		c.AuditTimeout = 90 * time.Second
	}
	if c.Capture.Mode == "" {
		c.Capture.Mode = ModeBrowser
	}
	if c.Capture.ViewportWidth <= 0 {
		c.Capture.ViewportWidth = 1920
	}
	if c.Capture.ViewportHeight <= 0 {
		c.Capture.ViewportHeight = 1440
	}
	if c.Capture.NavigationTimeout <= 0 {
		c.Capture.NavigationTimeout = 45 * time.Second
	}
	if c.Capture.SettleDelay == 0 {
		c.Capture.SettleDelay = 2 * time.Second
	}
	if c.Capture.MemoryLimitMB <= 0 {
		c.Capture.MemoryLimitMB = 1024
	}
	if c.Capture.RecycleInterval <= 0 {
		c.Capture.RecycleInterval = 4 * time.Hour
	}
	if c.Classifier.InputSize <= 0 {
		c.Classifier.InputSize = 224
	}
	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = 30 * time.Second
	}
	if c.RateLimit.PerSecond == 0 {
		c.RateLimit.PerSecond = 1
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 10
	}
}

// LoadConfig reads a YAML file (optional when path is ""), then applies
// environment overrides and defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("server: read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("server: parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("DESIGNAUDIT_LISTEN"); ok && v != "" {
		c.Listen = v
	}
	if v, ok := lookup("DESIGNAUDIT_DB"); ok {
		c.DBPath = v
	}
	if v, ok := lookup("DESIGNAUDIT_CLASSIFIER_ENDPOINT"); ok {
		c.Classifier.Endpoint = v
	}
	if v, ok := lookup("DESIGNAUDIT_CLASSIFIER_TOKEN"); ok {
		c.Classifier.Token = v
	}
	if v, ok := lookup("DESIGNAUDIT_BROWSER_REMOTE"); ok {
		c.Capture.RemoteURL = v
	}
	if v, ok := lookup("DESIGNAUDIT_TRUST_PROXY"); ok {
		if on, err := strconv.ParseBool(v); err == nil {
			c.RateLimit.TrustProxy = on
		}
	}
}

// Validate checks values the defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Capture.Mode {
	case ModeBrowser, ModeStatic:
	default:
		return fmt.Errorf("server: capture.mode %q (use browser or static)", c.Capture.Mode)
	}
	if c.Classifier.InputSize > 1024 {
		return fmt.Errorf("server: classifier.input_size %d exceeds 1024", c.Classifier.InputSize)
	}
	return nil
}
