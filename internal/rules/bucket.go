package rules

import (
	"fmt"

	"github.com/plexsphere/pktgate/internal/rangeset"
)

// Bucket pairs one port range with the set of addresses allowed on it.
// Buckets with identical port range bounds are merged when their table is
// frozen; partially overlapping port ranges stay in separate buckets.
type Bucket struct {
	ports rangeset.PortRange
	addrs *rangeset.AddressRangeSet

	// origin is the first record that produced the bucket. It is zero for
	// buckets created directly with NewBucket.
	origin RawRule

	// frozen is set on the copies owned by a frozen table.
	frozen bool
}

// NewBucket returns a bucket allowing addrs on ports.
func NewBucket(ports rangeset.PortRange, addrs rangeset.AddressRange) *Bucket {
	return &Bucket{
		ports: ports,
		addrs: rangeset.NewSet(addrs),
	}
}

// PortRange returns the bucket's port range.
func (b *Bucket) PortRange() rangeset.PortRange {
	return b.ports
}

// Addresses returns the bucket's coalesced address ranges in ascending order.
func (b *Bucket) Addresses() []rangeset.AddressRange {
	return b.addrs.Intervals()
}

// MergeAddressesFrom adds every address range of other to b. Both buckets must
// have exactly the same port range, and b must not belong to a frozen table.
func (b *Bucket) MergeAddressesFrom(other *Bucket) error {
	if b.frozen {
		return fmt.Errorf("rules: merge bucket %v: %w", b.ports, ErrTableFrozen)
	}
	if other.ports != b.ports {
		return fmt.Errorf("rules: merge bucket: port range %v differs from %v", other.ports, b.ports)
	}
	b.addrs.InsertSet(other.addrs)
	return nil
}

// Contains reports whether port is in the bucket's port range and addr is in
// its address set.
func (b *Bucket) Contains(port uint16, addr uint32) bool {
	return b.ports.Contains(port) && b.addrs.Contains(addr)
}

// clone returns an unfrozen deep copy of b.
func (b *Bucket) clone() *Bucket {
	return &Bucket{
		ports:  b.ports,
		addrs:  b.addrs.Clone(),
		origin: b.origin,
	}
}
