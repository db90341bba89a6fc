// Package config loads the pktgate configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plexsphere/pktgate/internal/policy"
	"github.com/plexsphere/pktgate/internal/rulefile"
	"github.com/plexsphere/pktgate/internal/rules"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "info"

	// DefaultOverlap is the default overlap policy.
	DefaultOverlap = rules.OverlapStrict
)

// Config is the top-level pktgate configuration. It aggregates the
// subsystem configurations and is populated from a YAML file via ParseConfig.
type Config struct {
	// LogLevel is the log level: "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// Overlap selects how intersecting port ranges are handled: "strict"
	// rejects them, "probe" accepts them at extra lookup cost.
	// Default: "strict"
	Overlap rules.OverlapPolicy `yaml:"overlap"`

	Rules    rulefile.Config `yaml:"rules"`
	Firewall policy.Config   `yaml:"firewall"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Overlap == "" {
		c.Overlap = DefaultOverlap
	}
	c.Rules.ApplyDefaults()
	c.Firewall.ApplyDefaults()
}

// Validate checks that required fields are set and values are acceptable.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log_level %q (must be debug, info, warn or error)", c.LogLevel)
	}
	if err := c.Overlap.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if err := c.Firewall.Validate(); err != nil {
		return err
	}
	return nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.ApplyDefaults()
	return &cfg
}

// ParseConfig reads a YAML configuration file and returns a Config.
// It applies defaults and validates the configuration.
func ParseConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
