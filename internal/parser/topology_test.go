package parser

import (
	"strings"
	"testing"

	"vlan-traffic-simulator/internal/model"
)

const sampleTopology = `
segments:
  - id: v1
    vlan: 10
    name: Administration
    subnet: 192.168.10.0/24
    devices:
      - id: d1
        name: Admin-PC-01
        address: 192.168.10.5
        category: workstation
  - vlan: 99
    name: DMZ
    subnet: 172.16.1.0/24
    devices:
      - id: d5
        name: WebServer
        address: 172.16.1.5
        category: server
rules:
  - id: r1
    source: 10
    destination: 99
    protocol: any
    action: PERMITIR
    description: admin to dmz
  - source: 99
    destination: 10
    protocol: tcp
    action: block
    priority: 50
inspection:
  ips: true
  webFilter: true
`

func TestTopologyParserParsesFixture(t *testing.T) {
	p := NewTopologyParser(strings.NewReader(sampleTopology))
	if err := p.Parse(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(p.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(p.Segments))
	}
	if p.Segments[1].ID != "vlan-99" {
		t.Fatalf("expected generated segment id, got %q", p.Segments[1].ID)
	}
	if p.Segments[0].Devices[0].Category != model.CategoryWorkstation {
		t.Fatalf("expected category to be normalised, got %q", p.Segments[0].Devices[0].Category)
	}

	if len(p.Rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(p.Rules))
	}
	r1, r2 := p.Rules[0], p.Rules[1]
	if r1.Protocol != model.Any || r1.Action != model.Permit || r1.Priority != 1 {
		t.Fatalf("unexpected first rule %+v", r1)
	}
	if r2.ID != "rule-2" || r2.Action != model.Deny || r2.Priority != 50 {
		t.Fatalf("unexpected second rule %+v", r2)
	}

	if !p.Inspection.IPS || p.Inspection.AntiMalware || !p.Inspection.WebFilter {
		t.Fatalf("unexpected inspection config %+v", p.Inspection)
	}
}

func TestTopologyParserRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{
			name:    "unknown field",
			input:   "segments:\n  - vlan: 10\n    colour: red\n",
			wantErr: "failed to decode",
		},
		{
			name:    "duplicate vlan",
			input:   "segments:\n  - vlan: 10\n  - vlan: 10\n",
			wantErr: "failed to validate",
		},
		{
			name:    "bad action",
			input:   "rules:\n  - source: 10\n    destination: 20\n    protocol: tcp\n    action: maybe\n",
			wantErr: "rule rule-1",
		},
		{
			name:    "bad protocol",
			input:   "rules:\n  - id: x\n    source: 10\n    destination: 20\n    protocol: gre\n    action: permit\n",
			wantErr: "rule x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTopologyParser(strings.NewReader(tt.input)).Parse()
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestTopologyParserAcceptsEmptyFile(t *testing.T) {
	p := NewTopologyParser(strings.NewReader(""))
	if err := p.Parse(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(p.Segments) != 0 || len(p.Rules) != 0 {
		t.Fatalf("expected an empty topology")
	}
}
