package model

import (
	"errors"
	"testing"
)

func TestParseProtocolNormalisesCase(t *testing.T) {
	tests := []struct {
		in   string
		want Protocol
	}{
		{"tcp", TCP},
		{" Udp ", UDP},
		{"ICMP", ICMP},
		{"any", Any},
	}
	for _, tt := range tests {
		got, err := ParseProtocol(tt.in)
		if err != nil {
			t.Fatalf("ParseProtocol(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseProtocol(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseProtocol("sctp"); !errors.Is(err, ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
	if Any.IsConcrete() {
		t.Fatalf("ANY must not be a concrete protocol")
	}
}

func TestParseActionAcceptsStoredAliases(t *testing.T) {
	for _, in := range []string{"permit", "ALLOW", "accept", "PERMITIR"} {
		if a, err := ParseAction(in); err != nil || a != Permit {
			t.Errorf("ParseAction(%q) = %s, %v; want PERMIT", in, a, err)
		}
	}
	for _, in := range []string{"deny", "BLOCK", "drop", "BLOQUEAR"} {
		if a, err := ParseAction(in); err != nil || a != Deny {
			t.Errorf("ParseAction(%q) = %s, %v; want DENY", in, a, err)
		}
	}
	if _, err := ParseAction("maybe"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestLabels(t *testing.T) {
	seg := Segment{Number: 99}
	if seg.Label() != "VLAN 99" {
		t.Fatalf("unexpected segment label %q", seg.Label())
	}
	d := Device{ID: "d1"}
	if d.Label() != "d1" {
		t.Fatalf("expected id fallback, got %q", d.Label())
	}
	d.Name = "admin-pc"
	if d.Label() != "admin-pc" {
		t.Fatalf("expected name label, got %q", d.Label())
	}
}
