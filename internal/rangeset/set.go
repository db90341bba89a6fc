package rangeset

import (
	"slices"
	"sort"
	"strings"
)

// Set is an ordered collection of intervals. Stored intervals are sorted by
// Start and never overlap or touch: for consecutive a, b it holds that
// a.End+1 < b.Start.
//
// A Set is mutated only by Insert. Once construction is finished it may be
// read from many goroutines concurrently.
type Set[T Scalar] struct {
	ivs []Interval[T]
}

// AddressRangeSet is a Set of IPv4 address ranges.
type AddressRangeSet = Set[uint32]

// NewSet returns a set holding the union of the given intervals.
func NewSet[T Scalar](ivs ...Interval[T]) *Set[T] {
	s := &Set[T]{}
	for _, iv := range ivs {
		s.Insert(iv)
	}
	return s
}

// Insert adds iv to the set, coalescing it with every stored interval it
// overlaps or is adjacent to.
func (s *Set[T]) Insert(iv Interval[T]) {
	// lo is the first stored interval that could merge with iv: every interval
	// before it ends at least two values below iv.Start.
	lo := sort.Search(len(s.ivs), func(i int) bool {
		return uint64(s.ivs[i].End)+1 >= uint64(iv.Start)
	})
	// hi is one past the last stored interval that could merge with iv.
	hi := lo
	for hi < len(s.ivs) && s.ivs[hi].touches(iv) {
		hi++
	}

	if lo < hi {
		iv.Start = min(iv.Start, s.ivs[lo].Start)
		iv.End = max(iv.End, s.ivs[hi-1].End)
	}

	switch {
	case lo == hi:
		s.ivs = append(s.ivs, Interval[T]{})
		copy(s.ivs[lo+1:], s.ivs[lo:])
		s.ivs[lo] = iv
	default:
		s.ivs[lo] = iv
		s.ivs = append(s.ivs[:lo+1], s.ivs[hi:]...)
	}
}

// InsertSet adds every interval of other to s.
func (s *Set[T]) InsertSet(other *Set[T]) {
	for _, iv := range other.ivs {
		s.Insert(iv)
	}
}

// Contains reports whether v lies in any stored interval.
func (s *Set[T]) Contains(v T) bool {
	// Index of the first interval starting after v; the candidate is the one
	// before it.
	i := sort.Search(len(s.ivs), func(i int) bool {
		return s.ivs[i].Start > v
	})
	if i == 0 {
		return false
	}
	return s.ivs[i-1].End >= v
}

// Len returns the number of stored (coalesced) intervals.
func (s *Set[T]) Len() int {
	return len(s.ivs)
}

// Intervals returns a copy of the stored intervals in ascending order.
func (s *Set[T]) Intervals() []Interval[T] {
	out := make([]Interval[T], len(s.ivs))
	copy(out, s.ivs)
	return out
}

// Clone returns an independent copy of s.
func (s *Set[T]) Clone() *Set[T] {
	return &Set[T]{ivs: slices.Clone(s.ivs)}
}

// Equal reports whether s and other cover exactly the same values.
func (s *Set[T]) Equal(other *Set[T]) bool {
	if len(s.ivs) != len(other.ivs) {
		return false
	}
	for i := range s.ivs {
		if s.ivs[i] != other.ivs[i] {
			return false
		}
	}
	return true
}

// String renders the set as a comma-separated list of intervals.
func (s *Set[T]) String() string {
	parts := make([]string, len(s.ivs))
	for i, iv := range s.ivs {
		parts[i] = iv.String()
	}
	return strings.Join(parts, ",")
}
