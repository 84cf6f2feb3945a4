package topology

import "vlan-traffic-simulator/internal/model"

// DefaultSegments is the demo campus used when a store is seeded or no
// topology file is given.
func DefaultSegments() []model.Segment {
	return []model.Segment{
		{
			ID: "v1", Number: 10, Name: "Administration", Subnet: "192.168.10.0/24",
			Devices: []model.Device{
				{ID: "d1", Name: "Admin-PC-01", Address: "192.168.10.5", Category: model.CategoryWorkstation},
				{ID: "d2", Name: "Admin-Srv", Address: "192.168.10.10", Category: model.CategoryServer},
			},
		},
		{
			ID: "v2", Number: 20, Name: "Sales", Subnet: "192.168.20.0/24",
			Devices: []model.Device{
				{ID: "d3", Name: "Sales-Laptop", Address: "192.168.20.5", Category: model.CategoryWorkstation},
			},
		},
		{
			ID: "v3", Number: 30, Name: "IoT / Cameras", Subnet: "192.168.30.0/24",
			Devices: []model.Device{
				{ID: "d4", Name: "Cam-Front", Address: "192.168.30.15", Category: model.CategoryIoT},
			},
		},
		{
			ID: "v4", Number: 99, Name: "DMZ Servers", Subnet: "172.16.1.0/24",
			Devices: []model.Device{
				{ID: "d5", Name: "WebServer", Address: "172.16.1.5", Category: model.CategoryServer},
			},
		},
	}
}

func DefaultRules() []model.Rule {
	return []model.Rule{
		{ID: "r1", SourceSegment: 10, DestSegment: 99, Protocol: model.Any, Action: model.Permit, Priority: 1, Description: "Administration full access to DMZ"},
		{ID: "r2", SourceSegment: 20, DestSegment: 99, Protocol: model.TCP, Action: model.Permit, Priority: 2, Description: "Sales web access to DMZ"},
		{ID: "r3", SourceSegment: 30, DestSegment: 10, Protocol: model.Any, Action: model.Deny, Priority: 3, Description: "IoT may not reach Administration"},
	}
}
