package cmd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net/netip"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go4.org/netipx"

	"github.com/plexsphere/pktgate/internal/fsutil"
	"github.com/plexsphere/pktgate/internal/rangeset"
	"github.com/plexsphere/pktgate/internal/rules"
)

var dumpOutput string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the frozen rule tables",
	Long: "Print every bucket of every table in lookup order. Each address range is\n" +
		"shown with the minimal set of CIDR prefixes covering it.",
	Args: cobra.NoArgs,
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpOutput, "output", "o", "", "write the dump to a file instead of stdout")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return fmt.Errorf("pktgate dump: %w", err)
	}

	if dumpOutput == "" {
		writeDump(cmd.OutOrStdout(), s.classifier)
		return nil
	}

	var buf bytes.Buffer
	writeDump(&buf, s.classifier)
	dir, name := filepath.Split(dumpOutput)
	if dir == "" {
		dir = "."
	}
	if err := fsutil.WriteFileAtomic(dir, name, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("pktgate dump: %w", err)
	}
	s.logger.Info("dump written", "component", "dump", "path", dumpOutput)
	return nil
}

func writeDump(w io.Writer, c *rules.Classifier) {
	for _, k := range rules.Keys() {
		buckets := c.Table(k).Buckets()
		fmt.Fprintf(w, "%s (%d buckets)\n", k, len(buckets))
		for _, b := range buckets {
			for _, r := range b.Addresses() {
				fmt.Fprintf(w, "  %-11s %-31s %s\n", b.PortRange(), rangeset.FormatAddressRange(r), cidrCover(r))
			}
		}
	}
}

// cidrCover returns the minimal list of prefixes that exactly covers r.
func cidrCover(r rangeset.AddressRange) string {
	ipr := netipx.IPRangeFrom(addrFrom(r.Start), addrFrom(r.End))
	prefixes := ipr.Prefixes()
	parts := make([]string, len(prefixes))
	for i, p := range prefixes {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

func addrFrom(v uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return netip.AddrFrom4(b)
}
