// Package config loads the optional YAML run configuration. Values from
// the file fill in whatever the command line leaves unset; explicit
// flags always win.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/triage-tools/github-triage/internal/domain"
)

// Config mirrors the report command's flags. Zero values mean "not set".
type Config struct {
	Project      string            `yaml:"project"`
	CacheFile    string            `yaml:"cache_file"`
	Output       string            `yaml:"output"`
	ClosedWindow int               `yaml:"closed_window_days"`
	Workers      int               `yaml:"workers"`
	Timeout      string            `yaml:"timeout"`
	EvictClosed  int               `yaml:"evict_closed_days"`
	Labels       domain.LabelRules `yaml:"labels"`
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &cfg, nil
}

// ParseTimeout returns the configured request timeout, or zero when the
// file does not set one.
func (c *Config) ParseTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q in config: %w", c.Timeout, err)
	}
	return d, nil
}
