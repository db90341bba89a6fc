package policy

import (
	"fmt"
	"math"

	"github.com/plexsphere/pktgate/internal/rangeset"
	"github.com/plexsphere/pktgate/internal/rules"
)

var (
	// AnyPort matches every destination port.
	AnyPort = rangeset.PortRange{Start: 0, End: math.MaxUint16}
	// AnyAddress matches every IPv4 address.
	AnyAddress = rangeset.AddressRange{Start: 0, End: math.MaxUint32}
)

// FirewallRule describes a single packet filter rule. Inbound rules match the
// packet's source address, outbound rules its destination address; both match
// the destination port.
type FirewallRule struct {
	Direction rules.Direction
	Protocol  string                // "tcp", "udp", or "" (any)
	Ports     rangeset.PortRange    // destination ports; AnyPort for any
	Addresses rangeset.AddressRange // remote addresses; AnyAddress for any
	Action    string                // "allow" or "deny"
}

// Validate checks the rule for semantic correctness and returns an error
// if any field contains an invalid value.
func (r *FirewallRule) Validate() error {
	if r.Action != "allow" && r.Action != "deny" {
		return fmt.Errorf("policy: firewall rule: invalid action %q", r.Action)
	}
	if r.Direction != rules.Inbound && r.Direction != rules.Outbound {
		return fmt.Errorf("policy: firewall rule: invalid direction %v", r.Direction)
	}
	if r.Ports.Start > r.Ports.End {
		return fmt.Errorf("policy: firewall rule: invalid port range %d-%d", r.Ports.Start, r.Ports.End)
	}
	if r.Addresses.Start > r.Addresses.End {
		return fmt.Errorf("policy: firewall rule: invalid address range %s", rangeset.FormatAddressRange(r.Addresses))
	}
	if r.Protocol != "" && r.Protocol != "tcp" && r.Protocol != "udp" {
		return fmt.Errorf("policy: firewall rule: invalid protocol %q", r.Protocol)
	}
	if r.Ports != AnyPort && r.Protocol == "" {
		return fmt.Errorf("policy: firewall rule: port range %v requires a protocol", r.Ports)
	}
	return nil
}

// FirewallController abstracts OS-level packet filter operations for testability.
type FirewallController interface {
	// EnsureTable creates the named table and its inbound and outbound chains
	// if they do not already exist.
	EnsureTable(table string) error
	// ApplyRules replaces all rules in the named table's chains atomically.
	ApplyRules(table string, fwRules []FirewallRule) error
	// DeleteTable deletes the named table with its chains and rules.
	// Implementations must be idempotent: deleting a non-existent table must return nil.
	DeleteTable(table string) error
}

// BuildFirewallRules converts a frozen classifier into concrete FirewallRule
// entries: one allow rule per bucket and coalesced address range, in lookup
// order, followed by a default-deny rule for each direction and protocol.
// Protocols the classifier does not decide are left to the backend's chain
// policy.
func BuildFirewallRules(c *rules.Classifier) []FirewallRule {
	var out []FirewallRule
	for _, k := range rules.Keys() {
		for _, b := range c.Table(k).Buckets() {
			for _, addrs := range b.Addresses() {
				out = append(out, FirewallRule{
					Direction: k.Direction,
					Protocol:  k.Protocol.String(),
					Ports:     b.PortRange(),
					Addresses: addrs,
					Action:    "allow",
				})
			}
		}
	}

	// Classified traffic not matched by any rule is dropped.
	for _, k := range rules.Keys() {
		out = append(out, FirewallRule{
			Direction: k.Direction,
			Protocol:  k.Protocol.String(),
			Ports:     AnyPort,
			Addresses: AnyAddress,
			Action:    "deny",
		})
	}
	return out
}
