// Package rules implements the packet classification engine: rule buckets
// grouped by port range, one frozen table per direction and protocol, and the
// Classifier that routes accept queries to the right table.
package rules

import "fmt"

// Direction is the traffic direction a rule applies to.
type Direction uint8

const (
	Inbound Direction = iota
	Outbound
)

// String returns the rule-file spelling of the direction.
func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// Protocol is the transport protocol a rule applies to.
type Protocol uint8

const (
	TCP Protocol = iota
	UDP
)

// String returns the rule-file spelling of the protocol.
func (p Protocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	case UDP:
		return "udp"
	default:
		return fmt.Sprintf("Protocol(%d)", uint8(p))
	}
}

// Key identifies one of the four rule tables.
type Key struct {
	Direction Direction
	Protocol  Protocol
}

// numKeys is the size of the {inbound,outbound}×{tcp,udp} key space.
const numKeys = 4

// index maps k onto [0, numKeys).
func (k Key) index() int {
	return int(k.Direction)*2 + int(k.Protocol)
}

func (k Key) valid() bool {
	return k.Direction <= Outbound && k.Protocol <= UDP
}

// String renders the key as "direction/protocol".
func (k Key) String() string {
	return k.Direction.String() + "/" + k.Protocol.String()
}

// Keys returns all four keys in table order.
func Keys() []Key {
	return []Key{
		{Inbound, TCP},
		{Inbound, UDP},
		{Outbound, TCP},
		{Outbound, UDP},
	}
}

// ParseKey maps a direction and protocol string onto a Key. Matching is exact:
// only "inbound"/"outbound" and "tcp"/"udp" are recognised.
func ParseKey(direction, protocol string) (Key, error) {
	var k Key
	switch direction {
	case "inbound":
		k.Direction = Inbound
	case "outbound":
		k.Direction = Outbound
	default:
		return Key{}, fmt.Errorf("%w: %q/%q", ErrUnknownDirectionProtocol, direction, protocol)
	}
	switch protocol {
	case "tcp":
		k.Protocol = TCP
	case "udp":
		k.Protocol = UDP
	default:
		return Key{}, fmt.Errorf("%w: %q/%q", ErrUnknownDirectionProtocol, direction, protocol)
	}
	return k, nil
}
