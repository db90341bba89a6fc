// Package cmd implements the pktgate CLI commands.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logLevel  string
	rulesPath string
	overlap   string
)

// Build info set from main.
var (
	buildVersion = "dev"
	buildCommit  = "none"
	buildDate    = "unknown"
)

// SetVersionInfo sets the version info from build-time ldflags.
func SetVersionInfo(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("pktgate version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

var rootCmd = &cobra.Command{
	Use:   "pktgate",
	Short: "pktgate is an IPv4 packet rule classifier",
	Long: "pktgate loads allow rules keyed by direction and protocol, freezes them into\n" +
		"sorted port-range buckets with coalesced address sets, and answers accept/deny\n" +
		"queries. It can also program the frozen rules into an nftables table.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "/etc/pktgate/config.yaml", "config file path (defaults are used if it does not exist)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error; overrides config)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "rules file path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&overlap, "overlap", "", "overlap policy: strict or probe (overrides config)")

	rootCmd.Version = buildVersion
	rootCmd.SetVersionTemplate(fmt.Sprintf("pktgate version {{.Version}}\ncommit: %s\nbuilt: %s\n", buildCommit, buildDate))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
