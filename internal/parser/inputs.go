package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"vlan-traffic-simulator/internal/model"
)

// Flow is one row of a batch input file.
type Flow struct {
	Line        int
	Source      string
	Destination string
	Protocol    model.Protocol
}

// ParseFlows reads a CSV with Source, Destination and Protocol columns in any
// order. Extra columns are ignored. A bad row fails the whole file with its
// line number.
func ParseFlows(r io.Reader) ([]Flow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	colMap := make(map[string]int)
	for i, colName := range header {
		colMap[strings.ToLower(strings.TrimSpace(colName))] = i
	}

	cols := make(map[string]int, 3)
	for _, name := range []string{"source", "destination", "protocol"} {
		idx, ok := colMap[name]
		if !ok {
			return nil, fmt.Errorf("could not find '%s' column in flow file", name)
		}
		cols[name] = idx
	}

	var flows []Flow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)

		field := func(name string) string {
			if idx := cols[name]; idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}

		src, dst := field("source"), field("destination")
		if src == "" || dst == "" {
			return nil, fmt.Errorf("line %d: source and destination are required", line)
		}
		proto, err := model.ParseProtocol(field("protocol"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !proto.IsConcrete() {
			return nil, fmt.Errorf("line %d: flow protocol must be TCP, UDP or ICMP, got %s", line, proto)
		}

		flows = append(flows, Flow{
			Line:        line,
			Source:      src,
			Destination: dst,
			Protocol:    proto,
		})
	}
	return flows, nil
}
