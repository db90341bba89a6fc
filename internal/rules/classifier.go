package rules

import (
	"fmt"
	"strings"

	"github.com/plexsphere/pktgate/internal/ipv4"
	"github.com/plexsphere/pktgate/internal/rangeset"
)

// RawRule is one tokenized record from a rule source.
type RawRule struct {
	// Line is the record's 1-based position in its source. Zero means unknown;
	// Build then uses the record's position in the input slice.
	Line int

	Direction    string
	Protocol     string
	PortRange    string
	AddressRange string
}

// String renders the record in rule-file form.
func (r RawRule) String() string {
	return strings.Join([]string{r.Direction, r.Protocol, r.PortRange, r.AddressRange}, ",")
}

// Classifier answers accept queries against four frozen tables, one per
// direction and protocol. It is immutable once built and may be shared across
// goroutines without locking.
type Classifier struct {
	policy OverlapPolicy
	tables [numKeys]*Table
}

// Build parses every record, groups it into the table for its direction and
// protocol, and freezes all tables. The first invalid record aborts the build
// with a *RuleError. Under OverlapStrict, intersecting port ranges also fail
// with a *RuleError naming both records.
func Build(records []RawRule, policy OverlapPolicy) (*Classifier, error) {
	if policy == "" {
		policy = OverlapStrict
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	c := &Classifier{policy: policy}
	for _, k := range Keys() {
		c.tables[k.index()] = NewTable(k, policy)
	}

	for i, r := range records {
		if r.Line == 0 {
			r.Line = i + 1
		}
		key, bucket, err := parseRecord(r)
		if err == nil {
			err = c.tables[key.index()].Add(bucket)
		}
		if err != nil {
			return nil, &RuleError{Line: r.Line, Rule: r, Err: err}
		}
	}

	for _, t := range c.tables {
		if err := t.Freeze(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// parseRecord converts a raw record into its table key and a single-range
// bucket.
func parseRecord(r RawRule) (Key, *Bucket, error) {
	key, err := ParseKey(r.Direction, r.Protocol)
	if err != nil {
		return Key{}, nil, err
	}
	ports, err := rangeset.ParsePortRange(r.PortRange)
	if err != nil {
		return Key{}, nil, err
	}
	addrs, err := rangeset.ParseAddressRange(r.AddressRange)
	if err != nil {
		return Key{}, nil, err
	}
	b := NewBucket(ports, addrs)
	b.origin = r
	return key, b, nil
}

// Accept reports whether a packet with the given direction, protocol,
// destination port and address is allowed. An unrecognised direction/protocol
// pair or a malformed address is an error, never a silent deny; the caller
// decides whether to fail open or closed.
func (c *Classifier) Accept(direction, protocol string, port uint16, address string) (bool, error) {
	key, err := ParseKey(direction, protocol)
	if err != nil {
		return false, fmt.Errorf("rules: accept: %w", err)
	}
	addr, err := ipv4.Parse(address)
	if err != nil {
		return false, fmt.Errorf("rules: accept: %w", err)
	}
	return c.AcceptAddr(key, port, addr), nil
}

// AcceptAddr is Accept for an already parsed key and address.
func (c *Classifier) AcceptAddr(key Key, port uint16, addr uint32) bool {
	if !key.valid() {
		return false
	}
	return c.tables[key.index()].Classify(port, addr)
}

// Table returns the frozen table for key, or nil if key is not one of the
// four known combinations.
func (c *Classifier) Table(key Key) *Table {
	if !key.valid() {
		return nil
	}
	return c.tables[key.index()]
}

// OverlapPolicy returns the policy the classifier was built with.
func (c *Classifier) OverlapPolicy() OverlapPolicy {
	return c.policy
}

// Stats summarises a classifier's size per table.
type Stats struct {
	Key       Key
	Buckets   int
	Intervals int
}

// Stats returns bucket and address interval counts for every table in key
// order.
func (c *Classifier) Stats() []Stats {
	out := make([]Stats, 0, numKeys)
	for _, k := range Keys() {
		s := Stats{Key: k}
		for _, b := range c.tables[k.index()].buckets {
			s.Buckets++
			s.Intervals += b.addrs.Len()
		}
		out = append(out, s)
	}
	return out
}
