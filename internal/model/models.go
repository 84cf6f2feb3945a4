package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnknownProtocol  = errors.New("unknown protocol")
	ErrUnknownAction    = errors.New("unknown action")
)

type Protocol string // "TCP", "UDP", "ICMP", "ANY"

const (
	TCP  Protocol = "TCP"
	UDP  Protocol = "UDP"
	ICMP Protocol = "ICMP"
	Any  Protocol = "ANY" // rule selector only
)

// ParseProtocol normalises a protocol token. ANY is accepted; callers that need
// a concrete protocol check IsConcrete.
func ParseProtocol(s string) (Protocol, error) {
	switch p := Protocol(strings.ToUpper(strings.TrimSpace(s))); p {
	case TCP, UDP, ICMP, Any:
		return p, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, s)
}

func (p Protocol) IsConcrete() bool {
	return p == TCP || p == UDP || p == ICMP
}

type Action string // "PERMIT", "DENY"

const (
	Permit Action = "PERMIT"
	Deny   Action = "DENY"
)

// ParseAction accepts the spellings found in stored rule sets.
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PERMIT", "ALLOW", "ACCEPT", "PERMITIR":
		return Permit, nil
	case "DENY", "BLOCK", "DROP", "BLOQUEAR":
		return Deny, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

type Outcome string

const (
	Permitted           Outcome = "permitted"
	BlockedByPolicy     Outcome = "blocked-by-policy"
	BlockedByInspection Outcome = "blocked-by-inspection"
)

const (
	CategoryWorkstation = "WORKSTATION"
	CategoryServer      = "SERVER"
	CategoryPeripheral  = "PERIPHERAL"
	CategoryIoT         = "IOT"
)

type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Category string `json:"category"`
}

// Label is the name shown in decision records.
func (d *Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

type Segment struct {
	ID      string   `json:"id"`
	Number  int      `json:"number"` // VLAN id, unique across segments
	Name    string   `json:"name"`
	Subnet  string   `json:"subnet"`
	Devices []Device `json:"devices"`
}

func (s *Segment) Label() string {
	return fmt.Sprintf("VLAN %d", s.Number)
}

type Rule struct {
	ID            string   `json:"id"`
	SourceSegment int      `json:"sourceSegment"`
	DestSegment   int      `json:"destSegment"`
	Protocol      Protocol `json:"protocol"`
	Action        Action   `json:"action"`
	Description   string   `json:"description"`
	Priority      int      `json:"priority"`
}

type InspectionConfig struct {
	IPS         bool `json:"ips"`
	AntiMalware bool `json:"antiMalware"`
	WebFilter   bool `json:"webFilter"`
}

func (c InspectionConfig) Enabled() bool {
	return c.IPS || c.AntiMalware || c.WebFilter
}

type Request struct {
	SourceDeviceID string           `json:"sourceDeviceId"`
	DestDeviceID   string           `json:"destDeviceId"`
	Protocol       Protocol         `json:"protocol"`
	Segments       []Segment        `json:"segments"`
	Rules          []Rule           `json:"rules"`
	Inspection     InspectionConfig `json:"inspection"`
}

const (
	InspectorIPS         = "intrusion-prevention"
	InspectorAntiMalware = "anti-malware"
	InspectorWebFilter   = "web-filter"
)

type DecisionRecord struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	SourceDevice  string    `json:"sourceDevice"`
	SourceSegment string    `json:"sourceSegment"`
	DestDevice    string    `json:"destDevice"`
	DestSegment   string    `json:"destSegment"`
	Protocol      Protocol  `json:"protocol"`
	Outcome       Outcome   `json:"outcome"`
	Reason        string    `json:"reason"`
	MatchedRuleID string    `json:"matchedRuleId,omitempty"`
	Inspector     string    `json:"inspector,omitempty"`
}
