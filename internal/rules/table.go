package rules

import (
	"fmt"
	"slices"
	"sort"
)

// OverlapPolicy selects how a table treats port ranges that intersect without
// being identical.
type OverlapPolicy string

const (
	// OverlapStrict rejects intersecting port ranges at Freeze time, so every
	// port is covered by at most one bucket and lookup is a single binary
	// search.
	OverlapStrict OverlapPolicy = "strict"

	// OverlapProbe accepts intersecting port ranges. When the bucket found by
	// binary search does not match, earlier buckets that can still reach the
	// port are probed in reverse order.
	OverlapProbe OverlapPolicy = "probe"
)

// Validate reports an error for anything other than OverlapStrict or
// OverlapProbe.
func (p OverlapPolicy) Validate() error {
	switch p {
	case OverlapStrict, OverlapProbe:
		return nil
	default:
		return fmt.Errorf("rules: invalid overlap policy %q (must be %q or %q)", string(p), OverlapStrict, OverlapProbe)
	}
}

// Table holds the buckets for one direction and protocol. It has two phases:
// buckets are added while it is open, and after Freeze it only answers
// Classify. A frozen table is safe for concurrent use.
type Table struct {
	key    Key
	policy OverlapPolicy
	frozen bool

	// buckets is the unordered working list before Freeze and the sorted,
	// deduplicated sequence afterwards.
	buckets []*Bucket

	// maxEnd[i] is the largest port range end among buckets[0..i]. Only
	// populated under OverlapProbe.
	maxEnd []uint16
}

// NewTable returns an open table for key.
func NewTable(key Key, policy OverlapPolicy) *Table {
	return &Table{key: key, policy: policy}
}

// Key returns the direction and protocol this table serves.
func (t *Table) Key() Key {
	return t.key
}

// Add appends b to the working list.
func (t *Table) Add(b *Bucket) error {
	if t.frozen {
		return fmt.Errorf("rules: %s: add: %w", t.key, ErrTableFrozen)
	}
	t.buckets = append(t.buckets, b)
	return nil
}

// Freeze sorts the buckets by port range, merges buckets whose port ranges are
// identical and applies the overlap policy. The table is read-only afterwards.
// Freeze works on copies: the buckets passed to Add are never modified, and a
// failed Freeze leaves the table open and unchanged.
func (t *Table) Freeze() error {
	if t.frozen {
		return fmt.Errorf("rules: %s: freeze: %w", t.key, ErrTableFrozen)
	}

	sorted := slices.Clone(t.buckets)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].ports, sorted[j].ports
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	merged := make([]*Bucket, 0, len(sorted))
	for _, b := range sorted {
		if n := len(merged); n > 0 && merged[n-1].ports == b.ports {
			if err := merged[n-1].MergeAddressesFrom(b); err != nil {
				return err
			}
			continue
		}
		merged = append(merged, b.clone())
	}

	var maxEnd []uint16
	switch t.policy {
	case OverlapProbe:
		maxEnd = make([]uint16, len(merged))
		for i, b := range merged {
			maxEnd[i] = b.ports.End
			if i > 0 {
				maxEnd[i] = max(maxEnd[i], maxEnd[i-1])
			}
		}
	default:
		// Sorted by start, so any intersecting pair implies an intersecting
		// neighbour pair.
		for i := 1; i < len(merged); i++ {
			if prev, cur := merged[i-1], merged[i]; prev.ports.Overlaps(cur.ports) {
				return overlapError(prev, cur)
			}
		}
	}

	for _, b := range merged {
		b.frozen = true
	}
	t.buckets = slices.Clip(merged)
	t.maxEnd = maxEnd
	t.frozen = true
	return nil
}

// overlapError reports two intersecting buckets as a *RuleError naming the
// later of their source records, with the earlier one as the conflict.
func overlapError(a, b *Bucket) error {
	if a.origin.Line > b.origin.Line {
		a, b = b, a
	}
	conflict := a.origin
	return &RuleError{
		Line:     b.origin.Line,
		Rule:     b.origin,
		Conflict: &conflict,
		Err:      fmt.Errorf("%w: %v and %v", ErrOverlappingPortRanges, a.ports, b.ports),
	}
}

// Frozen reports whether Freeze has completed.
func (t *Table) Frozen() bool {
	return t.frozen
}

// Buckets returns the table's buckets in lookup order. The returned slice is a
// copy. Once the table is frozen its buckets reject MergeAddressesFrom.
func (t *Table) Buckets() []*Bucket {
	return slices.Clone(t.buckets)
}

// Classify reports whether any bucket allows addr on port. It must only be
// called on a frozen table; an open table never matches.
func (t *Table) Classify(port uint16, addr uint32) bool {
	if !t.frozen {
		return false
	}

	// Rightmost bucket whose port range starts at or below port.
	i := sort.Search(len(t.buckets), func(i int) bool {
		return t.buckets[i].ports.Start > port
	}) - 1
	if i < 0 {
		return false
	}
	if t.buckets[i].Contains(port, addr) {
		return true
	}
	if t.policy != OverlapProbe {
		return false
	}

	for i--; i >= 0 && t.maxEnd[i] >= port; i-- {
		if t.buckets[i].Contains(port, addr) {
			return true
		}
	}
	return false
}
