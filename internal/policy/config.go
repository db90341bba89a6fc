// Package policy enforces a frozen rule classifier in the kernel packet filter.
package policy

import "errors"

// DefaultTableName is the default nftables table name for rule enforcement.
const DefaultTableName = "pktgate"

// Config holds the configuration for firewall enforcement.
type Config struct {
	// Enabled controls whether rules are programmed into the kernel.
	// A nil value means unset and is defaulted to true by ApplyDefaults.
	Enabled *bool `yaml:"enabled"`

	// TableName is the nftables table holding the inbound and outbound chains.
	// Default: "pktgate"
	TableName string `yaml:"table_name"`
}

// ApplyDefaults sets default values for unset fields. An explicit
// Enabled=false is preserved.
func (c *Config) ApplyDefaults() {
	if c.Enabled == nil {
		enabled := true
		c.Enabled = &enabled
	}
	if c.TableName == "" {
		c.TableName = DefaultTableName
	}
}

// IsEnabled reports whether enforcement is on. An unset Enabled counts as true.
func (c *Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if !c.IsEnabled() {
		return nil
	}
	if c.TableName == "" {
		return errors.New("policy: config: TableName must not be empty when enabled")
	}
	if len(c.TableName) > 255 {
		return errors.New("policy: config: TableName must be at most 255 bytes")
	}
	return nil
}
