//go:build !linux

package cmd

import (
	"log/slog"

	"github.com/plexsphere/pktgate/internal/policy"
)

// newFirewallController returns nil; nftables is only available on Linux.
func newFirewallController(_ *slog.Logger) policy.FirewallController {
	return nil
}
