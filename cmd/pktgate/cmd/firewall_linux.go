//go:build linux

package cmd

import (
	"log/slog"

	"github.com/plexsphere/pktgate/internal/policy"
)

func newFirewallController(logger *slog.Logger) policy.FirewallController {
	return policy.NewNftablesController(logger)
}
