// Package rangeset provides inclusive integer intervals over ports and IPv4
// addresses, and a sorted set of non-overlapping intervals with
// logarithmic-time membership tests.
package rangeset

import (
	"strconv"

	"github.com/plexsphere/pktgate/internal/ipv4"
)

// Scalar is the set of value types an Interval can range over.
type Scalar interface {
	~uint16 | ~uint32
}

// Interval is the inclusive range [Start, End]. Start <= End holds for every
// Interval produced by this package.
type Interval[T Scalar] struct {
	Start T
	End   T
}

// PortRange is an inclusive range of transport ports.
type PortRange = Interval[uint16]

// AddressRange is an inclusive range of IPv4 addresses in integer form.
type AddressRange = Interval[uint32]

// Single returns the interval containing only v.
func Single[T Scalar](v T) Interval[T] {
	return Interval[T]{Start: v, End: v}
}

// Contains reports whether v lies in the interval.
func (iv Interval[T]) Contains(v T) bool {
	return iv.Start <= v && v <= iv.End
}

// Overlaps reports whether iv and other share at least one value.
func (iv Interval[T]) Overlaps(other Interval[T]) bool {
	return iv.Start <= other.End && other.Start <= iv.End
}

// touches reports whether iv and other overlap or are directly adjacent, i.e.
// their union is a single interval.
func (iv Interval[T]) touches(other Interval[T]) bool {
	return uint64(iv.Start) <= uint64(other.End)+1 && uint64(other.Start) <= uint64(iv.End)+1
}

// String renders the interval as "N" or "N-M".
func (iv Interval[T]) String() string {
	if iv.Start == iv.End {
		return strconv.FormatUint(uint64(iv.Start), 10)
	}
	return strconv.FormatUint(uint64(iv.Start), 10) + "-" + strconv.FormatUint(uint64(iv.End), 10)
}

// FormatAddressRange renders an address range in dotted-quad form, either
// "A.B.C.D" or "A.B.C.D-E.F.G.H".
func FormatAddressRange(r AddressRange) string {
	if r.Start == r.End {
		return ipv4.Format(r.Start)
	}
	return ipv4.Format(r.Start) + "-" + ipv4.Format(r.End)
}
