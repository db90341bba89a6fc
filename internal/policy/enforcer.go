package policy

import (
	"fmt"
	"log/slog"

	"github.com/plexsphere/pktgate/internal/rules"
)

// Enforcer programs a frozen Classifier into a FirewallController.
type Enforcer struct {
	firewall FirewallController
	cfg      Config
	logger   *slog.Logger
}

// NewEnforcer creates an Enforcer. The firewall parameter may be nil if no
// firewall backend is available; Apply and Teardown are then no-ops.
func NewEnforcer(firewall FirewallController, cfg Config, logger *slog.Logger) *Enforcer {
	cfg.ApplyDefaults()
	return &Enforcer{
		firewall: firewall,
		cfg:      cfg,
		logger:   logger.With("component", "policy"),
	}
}

// Apply renders the classifier into firewall rules and replaces the rules in
// the configured table. It is a no-op when enforcement is disabled or no
// firewall backend is available.
func (e *Enforcer) Apply(c *rules.Classifier) error {
	if !e.cfg.IsEnabled() {
		e.logger.Debug("enforcement disabled, skipping rule application")
		return nil
	}
	if e.firewall == nil {
		e.logger.Warn("no firewall backend available, skipping rule enforcement")
		return nil
	}

	fwRules := BuildFirewallRules(c)
	for i := range fwRules {
		if err := fwRules[i].Validate(); err != nil {
			return fmt.Errorf("policy: enforce: %w", err)
		}
	}

	if err := e.firewall.EnsureTable(e.cfg.TableName); err != nil {
		return fmt.Errorf("policy: enforce: %w", err)
	}
	if err := e.firewall.ApplyRules(e.cfg.TableName, fwRules); err != nil {
		return fmt.Errorf("policy: enforce: %w", err)
	}

	e.logger.Info("applied firewall rules", "count", len(fwRules), "table", e.cfg.TableName)
	return nil
}

// Teardown removes the table and its rules. It is safe to call when the
// firewall backend is nil.
func (e *Enforcer) Teardown() error {
	if e.firewall == nil {
		return nil
	}
	if err := e.firewall.DeleteTable(e.cfg.TableName); err != nil {
		return fmt.Errorf("policy: teardown: %w", err)
	}
	e.logger.Info("removed firewall table", "table", e.cfg.TableName)
	return nil
}
