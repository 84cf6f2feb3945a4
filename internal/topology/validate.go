package topology

import (
	"fmt"
	"net"
	"strings"

	"github.com/yl2chen/cidranger"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/utils"
)

const (
	MinVLAN = 1
	MaxVLAN = 4094
)

// Validate checks the structural invariants the resolver relies on: VLAN
// numbers are in range and unique, and every device id is owned by exactly one
// segment.
func Validate(segments []model.Segment) error {
	numbers := make(map[int]string, len(segments))
	owners := make(map[string]int)
	for _, seg := range segments {
		if seg.Number < MinVLAN || seg.Number > MaxVLAN {
			return fmt.Errorf("segment %q: vlan %d out of range %d-%d", seg.Name, seg.Number, MinVLAN, MaxVLAN)
		}
		if prev, ok := numbers[seg.Number]; ok {
			return fmt.Errorf("vlan %d used by segments %q and %q", seg.Number, prev, seg.Name)
		}
		numbers[seg.Number] = seg.Name

		for _, dev := range seg.Devices {
			if strings.TrimSpace(dev.ID) == "" {
				return fmt.Errorf("vlan %d: device %q has no id", seg.Number, dev.Name)
			}
			if vlan, ok := owners[dev.ID]; ok {
				return fmt.Errorf("device %s belongs to vlan %d and vlan %d", dev.ID, vlan, seg.Number)
			}
			owners[dev.ID] = seg.Number
		}
	}
	return nil
}

type Finding struct {
	Segment int    `json:"segment"`
	Device  string `json:"device,omitempty"`
	Message string `json:"message"`
}

// Audit inspects the address plan. Findings are advisory; the decision engine
// never reads addresses.
func Audit(segments []model.Segment) []Finding {
	var findings []Finding
	ranger := cidranger.NewPCTrieRanger()
	owner := make(map[string]int)
	subnets := make(map[int]*net.IPNet)

	for _, seg := range segments {
		if seg.Subnet == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(seg.Subnet)
		if err != nil {
			findings = append(findings, Finding{Segment: seg.Number, Message: fmt.Sprintf("invalid subnet %q", seg.Subnet)})
			continue
		}

		overlaps, _ := ranger.ContainingNetworks(ipNet.IP)
		covered, _ := ranger.CoveredNetworks(*ipNet)
		seen := make(map[string]bool)
		for _, entry := range append(overlaps, covered...) {
			network := entry.Network()
			if seen[network.String()] {
				continue
			}
			seen[network.String()] = true
			findings = append(findings, Finding{
				Segment: seg.Number,
				Message: fmt.Sprintf("subnet %s overlaps vlan %d (%s)", ipNet, owner[network.String()], network.String()),
			})
		}

		if err := ranger.Insert(cidranger.NewBasicRangerEntry(*ipNet)); err != nil {
			continue
		}
		owner[ipNet.String()] = seg.Number
		subnets[seg.Number] = ipNet
	}

	addresses := make(map[string]string)
	for _, seg := range segments {
		home := subnets[seg.Number]
		if home != nil && uint64(len(seg.Devices)) > utils.HostCapacity(home) {
			findings = append(findings, Finding{
				Segment: seg.Number,
				Message: fmt.Sprintf("%d devices exceed the %d host addresses of %s", len(seg.Devices), utils.HostCapacity(home), home),
			})
		}
		for _, dev := range seg.Devices {
			if dev.Address == "" {
				continue
			}
			ip := net.ParseIP(dev.Address)
			if ip == nil {
				findings = append(findings, Finding{Segment: seg.Number, Device: dev.ID, Message: fmt.Sprintf("invalid address %q", dev.Address)})
				continue
			}
			if other, ok := addresses[ip.String()]; ok {
				findings = append(findings, Finding{Segment: seg.Number, Device: dev.ID, Message: fmt.Sprintf("address %s already used by device %s", ip, other)})
			} else {
				addresses[ip.String()] = dev.ID
			}
			if home == nil || home.Contains(ip) {
				continue
			}
			msg := fmt.Sprintf("address %s outside subnet %s", ip, home)
			if entries, _ := ranger.ContainingNetworks(ip); len(entries) > 0 {
				network := entries[len(entries)-1].Network()
				msg = fmt.Sprintf("%s, inside vlan %d", msg, owner[network.String()])
			}
			findings = append(findings, Finding{Segment: seg.Number, Device: dev.ID, Message: msg})
		}
	}
	return findings
}
