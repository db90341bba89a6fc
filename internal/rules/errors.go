package rules

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownDirectionProtocol is returned when a direction/protocol pair is
	// not one of inbound/outbound × tcp/udp.
	ErrUnknownDirectionProtocol = errors.New("unknown direction/protocol")

	// ErrOverlappingPortRanges is returned by Freeze under OverlapStrict when two
	// distinct port ranges in the same table intersect.
	ErrOverlappingPortRanges = errors.New("overlapping port ranges")

	// ErrTableFrozen is returned when a table is modified or frozen after Freeze.
	ErrTableFrozen = errors.New("table frozen")
)

// RuleError reports the raw record that caused a build to fail.
// It wraps the underlying error so that errors.Is matches the violated
// constraint's sentinel.
type RuleError struct {
	// Line is the record's 1-based position in its source.
	Line int
	Rule RawRule
	Err  error

	// Conflict is the other record when two records clash, as with
	// overlapping port ranges under OverlapStrict. Nil otherwise.
	Conflict *RawRule
}

// Error returns the formatted error string.
func (e *RuleError) Error() string {
	if e.Conflict != nil {
		return fmt.Sprintf("rules: line %d (%s): %v, conflicts with line %d (%s)",
			e.Line, e.Rule, e.Err, e.Conflict.Line, e.Conflict)
	}
	return fmt.Sprintf("rules: line %d (%s): %v", e.Line, e.Rule, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuleError) Unwrap() error {
	return e.Err
}
