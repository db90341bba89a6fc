package rangeset

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/plexsphere/pktgate/internal/ipv4"
)

var (
	// ErrInvalidRangeFormat is returned when a range is not "v" or "lo-hi".
	ErrInvalidRangeFormat = errors.New("invalid range format")

	// ErrInvalidRangeBounds is returned when a range has lo > hi.
	ErrInvalidRangeBounds = errors.New("invalid range bounds")

	// ErrInvalidPortValue is returned when a port is not a base-10 integer
	// in [0,65535].
	ErrInvalidPortValue = errors.New("invalid port value")
)

// ParsePortRange parses "80" or "81-90" into a PortRange.
func ParsePortRange(text string) (PortRange, error) {
	r, err := parseRange(text, parsePort)
	if err != nil {
		return PortRange{}, fmt.Errorf("rangeset: port range %q: %w", text, err)
	}
	return r, nil
}

// ParseAddressRange parses "192.168.1.2" or "192.168.1.2-192.168.1.5" into an
// AddressRange. Component errors from the ipv4 codec are preserved.
func ParseAddressRange(text string) (AddressRange, error) {
	r, err := parseRange(text, ipv4.Parse)
	if err != nil {
		return AddressRange{}, fmt.Errorf("rangeset: address range %q: %w", text, err)
	}
	return r, nil
}

// parseRange splits text on a single '-' and converts each bound with parse.
func parseRange[T Scalar](text string, parse func(string) (T, error)) (Interval[T], error) {
	parts := strings.Split(text, "-")
	switch len(parts) {
	case 1:
		v, err := parse(parts[0])
		if err != nil {
			return Interval[T]{}, err
		}
		return Single(v), nil
	case 2:
		lo, err := parse(parts[0])
		if err != nil {
			return Interval[T]{}, err
		}
		hi, err := parse(parts[1])
		if err != nil {
			return Interval[T]{}, err
		}
		if lo > hi {
			return Interval[T]{}, fmt.Errorf("%w: start %s is greater than end %s", ErrInvalidRangeBounds, parts[0], parts[1])
		}
		return Interval[T]{Start: lo, End: hi}, nil
	default:
		return Interval[T]{}, fmt.Errorf("%w: got %d parts, want 1 or 2", ErrInvalidRangeFormat, len(parts))
	}
}

func parsePort(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPortValue, s)
	}
	return uint16(v), nil
}
