package parser

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/topology"
)

type fileDevice struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Address  string `yaml:"address"`
	Category string `yaml:"category"`
}

type fileSegment struct {
	ID      string       `yaml:"id"`
	VLAN    int          `yaml:"vlan"`
	Name    string       `yaml:"name"`
	Subnet  string       `yaml:"subnet"`
	Devices []fileDevice `yaml:"devices"`
}

type fileRule struct {
	ID          string `yaml:"id"`
	Source      int    `yaml:"source"`
	Destination int    `yaml:"destination"`
	Protocol    string `yaml:"protocol"`
	Action      string `yaml:"action"`
	Priority    int    `yaml:"priority"`
	Description string `yaml:"description"`
}

type fileInspection struct {
	IPS         bool `yaml:"ips"`
	AntiMalware bool `yaml:"antiMalware"`
	WebFilter   bool `yaml:"webFilter"`
}

type topologyFile struct {
	Segments   []fileSegment  `yaml:"segments"`
	Rules      []fileRule     `yaml:"rules"`
	Inspection fileInspection `yaml:"inspection"`
}

// TopologyParser reads a YAML topology fixture: segments with their devices,
// the ordered ACL and the default inspection toggles.
type TopologyParser struct {
	reader io.Reader

	Segments   []model.Segment
	Rules      []model.Rule
	Inspection model.InspectionConfig
}

func NewTopologyParser(reader io.Reader) *TopologyParser {
	return &TopologyParser{reader: reader}
}

func (p *TopologyParser) Parse() error {
	var doc topologyFile
	dec := yaml.NewDecoder(p.reader)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && err != io.EOF {
		return fmt.Errorf("failed to decode topology file: %w", err)
	}

	segments := make([]model.Segment, 0, len(doc.Segments))
	for _, s := range doc.Segments {
		seg := model.Segment{
			ID:     s.ID,
			Number: s.VLAN,
			Name:   s.Name,
			Subnet: s.Subnet,
		}
		if seg.ID == "" {
			seg.ID = fmt.Sprintf("vlan-%d", s.VLAN)
		}
		for _, d := range s.Devices {
			seg.Devices = append(seg.Devices, model.Device{
				ID:       d.ID,
				Name:     d.Name,
				Address:  d.Address,
				Category: strings.ToUpper(strings.TrimSpace(d.Category)),
			})
		}
		segments = append(segments, seg)
	}
	if err := topology.Validate(segments); err != nil {
		return fmt.Errorf("failed to validate segments: %w", err)
	}

	rules := make([]model.Rule, 0, len(doc.Rules))
	for i, r := range doc.Rules {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("rule-%d", i+1)
		}
		proto, err := model.ParseProtocol(r.Protocol)
		if err != nil {
			return fmt.Errorf("failed to parse rule %s: %w", id, err)
		}
		action, err := model.ParseAction(r.Action)
		if err != nil {
			return fmt.Errorf("failed to parse rule %s: %w", id, err)
		}
		priority := r.Priority
		if priority == 0 {
			priority = i + 1
		}
		rules = append(rules, model.Rule{
			ID:            id,
			SourceSegment: r.Source,
			DestSegment:   r.Destination,
			Protocol:      proto,
			Action:        action,
			Description:   r.Description,
			Priority:      priority,
		})
	}

	p.Segments = segments
	p.Rules = rules
	p.Inspection = model.InspectionConfig{
		IPS:         doc.Inspection.IPS,
		AntiMalware: doc.Inspection.AntiMalware,
		WebFilter:   doc.Inspection.WebFilter,
	}
	return nil
}
