// Package ipv4 converts between dotted-quad IPv4 text and its 32-bit integer form.
package ipv4

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidAddressFormat is returned when an address does not have exactly
	// four dot-separated components.
	ErrInvalidAddressFormat = errors.New("invalid address format")

	// ErrInvalidAddressValue is returned when a component is not a base-10
	// integer in [0,255].
	ErrInvalidAddressValue = errors.New("invalid address value")
)

// Parse converts a dotted-quad address such as "192.168.1.2" into its
// big-endian integer value.
func Parse(text string) (uint32, error) {
	parts := strings.Split(text, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("ipv4: parse %q: %w: got %d components, want 4", text, ErrInvalidAddressFormat, len(parts))
	}

	var addr uint32
	for _, p := range parts {
		v, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("ipv4: parse %q: %w: component %q", text, ErrInvalidAddressValue, p)
		}
		addr = addr<<8 | uint32(v)
	}
	return addr, nil
}

// Format renders addr as a dotted-quad string. It is the inverse of Parse.
func Format(addr uint32) string {
	var b strings.Builder
	b.Grow(15)
	for shift := 24; shift >= 0; shift -= 8 {
		b.WriteString(strconv.FormatUint(uint64(addr>>shift&0xff), 10))
		if shift > 0 {
			b.WriteByte('.')
		}
	}
	return b.String()
}
