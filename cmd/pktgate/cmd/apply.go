package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plexsphere/pktgate/internal/policy"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Program the rules into nftables",
	Long: "Build the classifier and replace the contents of the configured nftables\n" +
		"table with one accept rule per bucket and address range, followed by a\n" +
		"default drop in each direction. Requires CAP_NET_ADMIN.",
	Args: cobra.NoArgs,
	RunE: runApply,
}

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Remove the nftables table",
	Long:  "Delete the configured nftables table and every rule in it.",
	Args:  cobra.NoArgs,
	RunE:  runTeardown,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(teardownCmd)
}

func runApply(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return fmt.Errorf("pktgate apply: %w", err)
	}

	enforcer := policy.NewEnforcer(newFirewallController(s.logger), s.cfg.Firewall, s.logger)
	if err := enforcer.Apply(s.classifier); err != nil {
		return fmt.Errorf("pktgate apply: %w", err)
	}
	if !s.cfg.Firewall.IsEnabled() {
		fmt.Fprintln(cmd.OutOrStdout(), "enforcement disabled, no rules applied")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "applied %d rules to table %q\n",
		len(policy.BuildFirewallRules(s.classifier)), s.cfg.Firewall.TableName)
	return nil
}

func runTeardown(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("pktgate teardown: %w", err)
	}
	logger := setupLogger(cfg.LogLevel)

	enforcer := policy.NewEnforcer(newFirewallController(logger), cfg.Firewall, logger)
	if err := enforcer.Teardown(); err != nil {
		return fmt.Errorf("pktgate teardown: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed table %q\n", cfg.Firewall.TableName)
	return nil
}
