package parser

import (
	"errors"
	"strings"
	"testing"

	"vlan-traffic-simulator/internal/model"
)

func TestParseFlowsReadsColumnsInAnyOrder(t *testing.T) {
	csvData := strings.NewReader("Protocol,Source,Note,Destination\n" +
		"tcp,d1,first,d5\n" +
		"# skipped comment\n" +
		"ICMP, d3 ,,d4\n")

	flows, err := ParseFlows(csvData)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(flows))
	}
	if flows[0].Source != "d1" || flows[0].Destination != "d5" || flows[0].Protocol != model.TCP {
		t.Fatalf("unexpected first flow %+v", flows[0])
	}
	if flows[1].Source != "d3" || flows[1].Protocol != model.ICMP {
		t.Fatalf("unexpected second flow %+v", flows[1])
	}
	if flows[1].Line != 4 {
		t.Fatalf("expected second flow on line 4, got %d", flows[1].Line)
	}
}

func TestParseFlowsRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "missing column", input: "Source,Destination\nd1,d2\n", wantErr: "'protocol' column"},
		{name: "empty file", input: "", wantErr: "could not read header"},
		{name: "unknown protocol", input: "Source,Destination,Protocol\nd1,d2,SCTP\n", wantErr: "line 2"},
		{name: "any is not a flow protocol", input: "Source,Destination,Protocol\nd1,d2,ANY\n", wantErr: "must be TCP, UDP or ICMP"},
		{name: "missing destination", input: "Source,Destination,Protocol\nd1,,TCP\n", wantErr: "source and destination are required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFlows(strings.NewReader(tt.input))
			if err == nil {
				t.Fatalf("expected an error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}

	_, err := ParseFlows(strings.NewReader("Source,Destination,Protocol\nd1,d2,GRE\n"))
	if !errors.Is(err, model.ErrUnknownProtocol) {
		t.Fatalf("expected ErrUnknownProtocol, got %v", err)
	}
}
