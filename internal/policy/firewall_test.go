package policy

import (
	"testing"

	"github.com/plexsphere/pktgate/internal/rangeset"
	"github.com/plexsphere/pktgate/internal/rules"
)

func TestFirewallRule_ValidateAcceptsValid(t *testing.T) {
	valid := []FirewallRule{
		{Direction: rules.Inbound, Ports: AnyPort, Addresses: AnyAddress, Action: "allow"},
		{Direction: rules.Outbound, Ports: AnyPort, Addresses: AnyAddress, Action: "deny"},
		{Direction: rules.Inbound, Protocol: "tcp", Ports: rangeset.Single[uint16](443), Addresses: AnyAddress, Action: "allow"},
		{Direction: rules.Outbound, Protocol: "udp", Ports: rangeset.PortRange{Start: 53, End: 54}, Addresses: rangeset.Single[uint32](1), Action: "deny"},
		{Direction: rules.Inbound, Protocol: "tcp", Ports: AnyPort, Addresses: AnyAddress, Action: "allow"},
	}
	for _, r := range valid {
		if err := r.Validate(); err != nil {
			t.Errorf("Validate() returned error for valid rule %+v: %v", r, err)
		}
	}
}

func TestFirewallRule_ValidateRejectsInvalidAction(t *testing.T) {
	for _, action := range []string{"", "accept", "drop", "ALLOW"} {
		r := FirewallRule{Ports: AnyPort, Addresses: AnyAddress, Action: action}
		if err := r.Validate(); err == nil {
			t.Errorf("Validate() accepted invalid action %q", action)
		}
	}
}

func TestFirewallRule_ValidateRejectsInvalidDirection(t *testing.T) {
	r := FirewallRule{Direction: rules.Direction(5), Ports: AnyPort, Addresses: AnyAddress, Action: "allow"}
	if err := r.Validate(); err == nil {
		t.Error("Validate() accepted invalid direction")
	}
}

func TestFirewallRule_ValidateRejectsReversedRanges(t *testing.T) {
	r := FirewallRule{Protocol: "tcp", Ports: rangeset.PortRange{Start: 90, End: 80}, Addresses: AnyAddress, Action: "allow"}
	if err := r.Validate(); err == nil {
		t.Error("Validate() accepted reversed port range")
	}
	r = FirewallRule{Ports: AnyPort, Addresses: rangeset.AddressRange{Start: 9, End: 1}, Action: "allow"}
	if err := r.Validate(); err == nil {
		t.Error("Validate() accepted reversed address range")
	}
}

func TestFirewallRule_ValidateRejectsInvalidProtocol(t *testing.T) {
	for _, proto := range []string{"icmp", "TCP", "UDP", "sctp"} {
		r := FirewallRule{Ports: AnyPort, Addresses: AnyAddress, Action: "allow", Protocol: proto}
		if err := r.Validate(); err == nil {
			t.Errorf("Validate() accepted invalid protocol %q", proto)
		}
	}
}

func TestFirewallRule_ValidateRejectsPortWithoutProtocol(t *testing.T) {
	r := FirewallRule{Ports: rangeset.Single[uint16](80), Addresses: AnyAddress, Action: "allow"}
	if err := r.Validate(); err == nil {
		t.Error("Validate() accepted a port range with empty protocol")
	}
}

func sampleClassifier(t *testing.T) *rules.Classifier {
	t.Helper()
	c, err := rules.Build([]rules.RawRule{
		{Direction: "inbound", Protocol: "tcp", PortRange: "80", AddressRange: "192.168.1.2"},
		{Direction: "inbound", Protocol: "tcp", PortRange: "80-80", AddressRange: "192.168.1.3"},
		{Direction: "inbound", Protocol: "tcp", PortRange: "81-90", AddressRange: "192.168.1.2-192.168.1.5"},
		{Direction: "outbound", Protocol: "tcp", PortRange: "10234-10234", AddressRange: "192.168.10.11"},
		{Direction: "inbound", Protocol: "udp", PortRange: "53", AddressRange: "192.168.2.1-192.168.2.5"},
		{Direction: "inbound", Protocol: "udp", PortRange: "53", AddressRange: "10.0.0.1"},
	}, rules.OverlapStrict)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return c
}

func TestBuildFirewallRules(t *testing.T) {
	got := BuildFirewallRules(sampleClassifier(t))

	want := []FirewallRule{
		{Direction: rules.Inbound, Protocol: "tcp", Ports: rangeset.PortRange{Start: 80, End: 80}, Addresses: rangeset.AddressRange{Start: 0xC0A80102, End: 0xC0A80103}, Action: "allow"},
		{Direction: rules.Inbound, Protocol: "tcp", Ports: rangeset.PortRange{Start: 81, End: 90}, Addresses: rangeset.AddressRange{Start: 0xC0A80102, End: 0xC0A80105}, Action: "allow"},
		{Direction: rules.Inbound, Protocol: "udp", Ports: rangeset.PortRange{Start: 53, End: 53}, Addresses: rangeset.AddressRange{Start: 0x0A000001, End: 0x0A000001}, Action: "allow"},
		{Direction: rules.Inbound, Protocol: "udp", Ports: rangeset.PortRange{Start: 53, End: 53}, Addresses: rangeset.AddressRange{Start: 0xC0A80201, End: 0xC0A80205}, Action: "allow"},
		{Direction: rules.Outbound, Protocol: "tcp", Ports: rangeset.PortRange{Start: 10234, End: 10234}, Addresses: rangeset.AddressRange{Start: 0xC0A80A0B, End: 0xC0A80A0B}, Action: "allow"},
		{Direction: rules.Inbound, Protocol: "tcp", Ports: AnyPort, Addresses: AnyAddress, Action: "deny"},
		{Direction: rules.Inbound, Protocol: "udp", Ports: AnyPort, Addresses: AnyAddress, Action: "deny"},
		{Direction: rules.Outbound, Protocol: "tcp", Ports: AnyPort, Addresses: AnyAddress, Action: "deny"},
		{Direction: rules.Outbound, Protocol: "udp", Ports: AnyPort, Addresses: AnyAddress, Action: "deny"},
	}
	if len(got) != len(want) {
		t.Fatalf("BuildFirewallRules() returned %d rules, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("rule %d = %+v, want %+v", i, got[i], want[i])
		}
		if err := got[i].Validate(); err != nil {
			t.Errorf("rule %d Validate() = %v", i, err)
		}
	}
}

func TestBuildFirewallRules_EmptyClassifierDeniesAll(t *testing.T) {
	c, err := rules.Build(nil, rules.OverlapStrict)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got := BuildFirewallRules(c)
	if len(got) != 4 {
		t.Fatalf("BuildFirewallRules() returned %d rules, want 4 default-deny rules", len(got))
	}
	for _, r := range got {
		if r.Action != "deny" {
			t.Errorf("rule %+v is not a deny rule", r)
		}
		if r.Protocol != "tcp" && r.Protocol != "udp" {
			t.Errorf("deny rule %+v is not scoped to tcp or udp", r)
		}
	}
}
