//go:build linux

package policy

import (
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"github.com/plexsphere/pktgate/internal/rules"
)

// Chain names inside the pktgate table.
const (
	inboundChain  = "inbound"
	outboundChain = "outbound"
)

// IPv4 header offsets of the source and destination address.
const (
	srcAddrOffset = 12
	dstAddrOffset = 16
)

// NftablesController implements FirewallController using the Linux nftables subsystem
// via the google/nftables netlink library. It manages one IPv4 filter table
// holding an "inbound" chain on the input hook and an "outbound" chain on the
// output hook.
type NftablesController struct {
	logger *slog.Logger
}

// NewNftablesController returns a new NftablesController.
func NewNftablesController(logger *slog.Logger) *NftablesController {
	return &NftablesController{logger: logger}
}

// EnsureTable creates the named table and its two base chains if they do not
// already exist.
func (c *NftablesController) EnsureTable(table string) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("policy: nftables: ensure table: %w", err)
	}

	t := c.addTable(conn, table)
	c.addChains(conn, t)

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("policy: nftables: ensure table %q: %w", table, err)
	}

	c.logger.Debug("nftables table ensured",
		"component", "policy",
		"table", table,
	)
	return nil
}

// ApplyRules replaces all rules in the table's chains atomically. Both chains
// are flushed first. Each chain then gets its preamble (loopback and
// established/related accept) followed by the FirewallRules for its direction
// in order.
func (c *NftablesController) ApplyRules(table string, fwRules []FirewallRule) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("policy: nftables: apply rules: %w", err)
	}

	t := c.addTable(conn, table)
	in, out := c.addChains(conn, t)

	// Flush existing rules in both chains before adding new ones.
	conn.FlushChain(in)
	conn.FlushChain(out)

	for _, chain := range []*nftables.Chain{in, out} {
		d := rules.Inbound
		if chain == out {
			d = rules.Outbound
		}
		chainExprs, err := chainRuleExprs(d, fwRules)
		if err != nil {
			return fmt.Errorf("policy: nftables: apply rules: %w", err)
		}
		for _, exprs := range chainExprs {
			conn.AddRule(&nftables.Rule{
				Table: t,
				Chain: chain,
				Exprs: exprs,
			})
		}
	}

	if err := conn.Flush(); err != nil {
		return fmt.Errorf("policy: nftables: apply rules to table %q: %w", table, err)
	}

	c.logger.Debug("nftables rules applied",
		"component", "policy",
		"table", table,
		"count", len(fwRules),
	)
	return nil
}

// DeleteTable deletes the named table. It is idempotent: deleting a
// non-existent table returns nil.
func (c *NftablesController) DeleteTable(table string) error {
	conn, err := nftables.New()
	if err != nil {
		return fmt.Errorf("policy: nftables: delete table: %w", err)
	}

	tables, err := conn.ListTablesOfFamily(nftables.TableFamilyIPv4)
	if err != nil {
		return fmt.Errorf("policy: nftables: delete table: list tables: %w", err)
	}

	for _, t := range tables {
		if t.Name == table {
			conn.DelTable(t)
			if err := conn.Flush(); err != nil {
				return fmt.Errorf("policy: nftables: delete table %q: %w", table, err)
			}
			c.logger.Debug("nftables table deleted",
				"component", "policy",
				"table", table,
			)
			return nil
		}
	}

	c.logger.Debug("nftables table not found, nothing to delete",
		"component", "policy",
		"table", table,
	)
	return nil
}

// addTable adds the IPv4 filter table to the connection batch.
// AddTable is idempotent in nftables; adding an existing table is a no-op.
func (c *NftablesController) addTable(conn *nftables.Conn, name string) *nftables.Table {
	return conn.AddTable(&nftables.Table{
		Family: nftables.TableFamilyIPv4,
		Name:   name,
	})
}

// addChains adds the inbound (input hook) and outbound (output hook) base
// chains to the connection batch.
func (c *NftablesController) addChains(conn *nftables.Conn, t *nftables.Table) (in, out *nftables.Chain) {
	in = conn.AddChain(&nftables.Chain{
		Name:     inboundChain,
		Table:    t,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookInput,
		Priority: nftables.ChainPriorityFilter,
	})
	out = conn.AddChain(&nftables.Chain{
		Name:     outboundChain,
		Table:    t,
		Type:     nftables.ChainTypeFilter,
		Hooknum:  nftables.ChainHookOutput,
		Priority: nftables.ChainPriorityFilter,
	})
	return in, out
}

// chainRuleExprs returns the expressions of every rule in the chain for d, in
// evaluation order: the chain preamble, then the FirewallRules whose direction
// is d.
func chainRuleExprs(d rules.Direction, fwRules []FirewallRule) ([][]expr.Any, error) {
	out := chainPreamble(d)
	for _, rule := range fwRules {
		if rule.Direction != d {
			continue
		}
		exprs, err := buildRuleExprs(rule)
		if err != nil {
			return nil, fmt.Errorf("build expressions: %w", err)
		}
		out = append(out, exprs)
	}
	return out, nil
}

// chainPreamble accepts loopback traffic and packets of established or related
// connections, so replies to allowed flows are not caught by the default drop.
func chainPreamble(d rules.Direction) [][]expr.Any {
	ifKey := expr.MetaKeyIIFNAME
	if d == rules.Outbound {
		ifKey = expr.MetaKeyOIFNAME
	}
	loopback := []expr.Any{
		&expr.Meta{Key: ifKey, Register: 1},
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     ifaceNameBytes("lo"),
		},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
	established := []expr.Any{
		&expr.Ct{Register: 1, Key: expr.CtKeySTATE},
		&expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            4,
			Mask:           binaryutil.NativeEndian.PutUint32(expr.CtStateBitESTABLISHED | expr.CtStateBitRELATED),
			Xor:            binaryutil.NativeEndian.PutUint32(0),
		},
		&expr.Cmp{
			Op:       expr.CmpOpNeq,
			Register: 1,
			Data:     []byte{0, 0, 0, 0},
		},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
	return [][]expr.Any{loopback, established}
}

// buildRuleExprs converts a FirewallRule into nftables match expressions and a verdict.
func buildRuleExprs(rule FirewallRule) ([]expr.Any, error) {
	var exprs []expr.Any

	// Match protocol if specified.
	if rule.Protocol != "" {
		proto, err := protocolNumber(rule.Protocol)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs,
			&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     []byte{proto},
			},
		)
	}

	// Match destination port range unless it covers every port.
	if rule.Ports != AnyPort {
		if rule.Protocol == "" {
			return nil, fmt.Errorf("port range %v requires a protocol", rule.Ports)
		}
		exprs = append(exprs,
			&expr.Payload{
				DestRegister: 1,
				Base:         expr.PayloadBaseTransportHeader,
				Offset:       2, // TCP/UDP destination port offset
				Len:          2,
			},
		)
		exprs = append(exprs, matchRange(portBytes(rule.Ports.Start), portBytes(rule.Ports.End))...)
	}

	// Match the remote address range unless it covers every address.
	if rule.Addresses != AnyAddress {
		offset, err := addrOffset(rule.Direction)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs,
			&expr.Payload{
				DestRegister: 1,
				Base:         expr.PayloadBaseNetworkHeader,
				Offset:       offset,
				Len:          4,
			},
		)
		exprs = append(exprs, matchRange(addrBytes(rule.Addresses.Start), addrBytes(rule.Addresses.End))...)
	}

	// Append counter for observability.
	exprs = append(exprs, &expr.Counter{})

	// Append verdict.
	switch rule.Action {
	case "allow":
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictAccept})
	case "deny":
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictDrop})
	default:
		return nil, fmt.Errorf("unsupported action %q", rule.Action)
	}

	return exprs, nil
}

// matchRange compares register 1 against [from, to]. Single values use an
// exact compare; ranges use an inclusive range expression. Both bounds must be
// in network byte order.
func matchRange(from, to []byte) []expr.Any {
	if string(from) == string(to) {
		return []expr.Any{
			&expr.Cmp{
				Op:       expr.CmpOpEq,
				Register: 1,
				Data:     from,
			},
		}
	}
	return []expr.Any{
		&expr.Range{
			Op:       expr.CmpOpEq,
			Register: 1,
			FromData: from,
			ToData:   to,
		},
	}
}

// addrOffset returns the IPv4 header offset of the remote address: the source
// for inbound traffic, the destination for outbound traffic.
func addrOffset(d rules.Direction) (uint32, error) {
	switch d {
	case rules.Inbound:
		return srcAddrOffset, nil
	case rules.Outbound:
		return dstAddrOffset, nil
	default:
		return 0, fmt.Errorf("unsupported direction %v", d)
	}
}

// protocolNumber maps a protocol string to its IP protocol number.
func protocolNumber(proto string) (byte, error) {
	switch proto {
	case "tcp":
		return unix.IPPROTO_TCP, nil
	case "udp":
		return unix.IPPROTO_UDP, nil
	default:
		return 0, fmt.Errorf("unsupported protocol %q", proto)
	}
}

// ifaceNameBytes returns name as a NUL-terminated interface name for
// comparison against the IIFNAME/OIFNAME meta keys.
func ifaceNameBytes(name string) []byte {
	buf := make([]byte, len(name)+1)
	copy(buf, name)
	return buf
}

// portBytes encodes a port number as 2 big-endian bytes for nftables matching.
func portBytes(port uint16) []byte {
	return binary.BigEndian.AppendUint16(nil, port)
}

// addrBytes encodes an IPv4 address as 4 big-endian bytes for nftables matching.
func addrBytes(addr uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, addr)
}
