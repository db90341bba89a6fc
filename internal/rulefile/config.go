// Package rulefile loads raw firewall rules from CSV or YAML sources and
// verifies the source file's SHA-256 digest.
package rulefile

import (
	"errors"
	"fmt"
	"regexp"
)

// DefaultPath is the default rules file location.
const DefaultPath = "/etc/pktgate/rules.csv"

// Supported rule file formats.
const (
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Config holds the location and expected integrity of the rules file.
type Config struct {
	// Path is the rules file to load.
	// Default: /etc/pktgate/rules.csv
	Path string `yaml:"path"`

	// Format is "csv" or "yaml". When empty it is derived from the file
	// extension (.yaml/.yml → yaml, anything else → csv).
	Format string `yaml:"format"`

	// SHA256 is the expected hex-encoded SHA-256 digest of the rules file.
	// When empty, no digest check is performed.
	SHA256 string `yaml:"sha256"`
}

// ApplyDefaults sets default values for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Path == "" {
		c.Path = DefaultPath
	}
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Path == "" {
		return errors.New("rulefile: config: Path must not be empty")
	}
	switch c.Format {
	case "", FormatCSV, FormatYAML:
	default:
		return fmt.Errorf("rulefile: config: invalid format %q (must be %q or %q)", c.Format, FormatCSV, FormatYAML)
	}
	if c.SHA256 != "" && !sha256Hex.MatchString(c.SHA256) {
		return fmt.Errorf("rulefile: config: SHA256 must be 64 lowercase hex characters, got %q", c.SHA256)
	}
	return nil
}
