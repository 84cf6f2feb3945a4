package topology

import (
	"errors"
	"strings"
	"testing"

	"vlan-traffic-simulator/internal/model"
)

func sampleSegments() []model.Segment {
	return []model.Segment{
		{
			ID: "v1", Number: 10, Name: "Administration", Subnet: "192.168.10.0/24",
			Devices: []model.Device{
				{ID: "d1", Name: "admin-pc", Address: "192.168.10.5"},
				{ID: "d2", Name: "admin-srv", Address: "192.168.10.10"},
			},
		},
		{
			ID: "v4", Number: 99, Name: "DMZ", Subnet: "172.16.1.0/24",
			Devices: []model.Device{
				{ID: "d5", Name: "web-srv", Address: "172.16.1.5"},
				// name collides with d1's id to exercise id precedence
				{ID: "d6", Name: "d1", Address: "172.16.1.6"},
			},
		},
	}
}

func TestResolverPrefersIdentifierMatch(t *testing.T) {
	r := NewResolver(sampleSegments(), MatchByName(true))

	res, err := r.Resolve("d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Device.ID != "d1" || res.Segment.Number != 10 {
		t.Fatalf("expected d1 in vlan 10, got %s in vlan %d", res.Device.ID, res.Segment.Number)
	}

	res, err = r.Resolve("web-srv")
	if err != nil {
		t.Fatalf("expected name match, got %v", err)
	}
	if res.Device.ID != "d5" {
		t.Fatalf("expected d5, got %s", res.Device.ID)
	}
}

func TestResolverNameMatchDisabledByDefault(t *testing.T) {
	r := NewResolver(sampleSegments())
	_, err := r.Resolve("web-srv")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	var topoErr *TopologyError
	if !errors.As(err, &topoErr) || topoErr.DeviceID != "web-srv" {
		t.Fatalf("expected TopologyError for web-srv, got %#v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		segments []model.Segment
		wantErr  string
	}{
		{name: "valid", segments: sampleSegments()},
		{
			name:     "duplicate vlan",
			segments: []model.Segment{{Name: "a", Number: 10}, {Name: "b", Number: 10}},
			wantErr:  "vlan 10 used by",
		},
		{
			name:     "vlan out of range",
			segments: []model.Segment{{Name: "a", Number: 4095}},
			wantErr:  "out of range",
		},
		{
			name: "device in two segments",
			segments: []model.Segment{
				{Number: 10, Devices: []model.Device{{ID: "d1"}}},
				{Number: 20, Devices: []model.Device{{ID: "d1"}}},
			},
			wantErr: "belongs to vlan 10 and vlan 20",
		},
		{
			name:     "device without id",
			segments: []model.Segment{{Number: 10, Devices: []model.Device{{Name: "ghost"}}}},
			wantErr:  "has no id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.segments)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAuditReportsAddressPlanProblems(t *testing.T) {
	segments := []model.Segment{
		{Number: 10, Subnet: "192.168.10.0/24", Devices: []model.Device{
			{ID: "ok", Address: "192.168.10.5"},
			{ID: "stray", Address: "192.168.20.7"},
			{ID: "bad", Address: "not-an-ip"},
		}},
		{Number: 20, Subnet: "192.168.20.0/24"},
		{Number: 30, Subnet: "192.168.20.128/25"},
		{Number: 40, Subnet: "garbage"},
	}

	findings := Audit(segments)

	var messages []string
	for _, f := range findings {
		messages = append(messages, f.Message)
	}
	joined := strings.Join(messages, "\n")

	for _, want := range []string{
		"invalid subnet \"garbage\"",
		"subnet 192.168.20.128/25 overlaps vlan 20",
		"address 192.168.20.7 outside subnet 192.168.10.0/24, inside vlan",
		"invalid address \"not-an-ip\"",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected finding %q, got:\n%s", want, joined)
		}
	}
	for _, f := range findings {
		if f.Device == "ok" {
			t.Errorf("device inside its subnet must not be reported: %#v", f)
		}
	}
}

func TestAuditCapacityAndDuplicateAddresses(t *testing.T) {
	segments := []model.Segment{
		{Number: 10, Subnet: "10.0.0.0/30", Devices: []model.Device{
			{ID: "a", Address: "10.0.0.1"},
			{ID: "b", Address: "10.0.0.2"},
			{ID: "c", Address: "10.0.0.1"},
		}},
	}

	findings := Audit(segments)

	var capacity, duplicate bool
	for _, f := range findings {
		if f.Message == "3 devices exceed the 2 host addresses of 10.0.0.0/30" {
			capacity = true
		}
		if f.Device == "c" && f.Message == "address 10.0.0.1 already used by device a" {
			duplicate = true
		}
	}
	if !capacity || !duplicate {
		t.Fatalf("expected capacity and duplicate findings, got %#v", findings)
	}
}

func TestAuditCleanPlan(t *testing.T) {
	if findings := Audit(sampleSegments()); len(findings) != 0 {
		t.Fatalf("expected no findings, got %#v", findings)
	}
}
