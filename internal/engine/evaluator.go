package engine

import (
	"fmt"
	"sort"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/topology"
)

type Status int

const (
	StatusContinue Status = iota
	StatusPermit
	StatusBlock
)

func (s Status) String() string {
	switch s {
	case StatusPermit:
		return "PERMIT"
	case StatusBlock:
		return "BLOCK"
	default:
		return "CONTINUE"
	}
}

const (
	ReasonSameSegment  = "same-segment switching"
	ReasonImplicitDeny = "implicit deny: no matching rule"
	ReasonCleanTraffic = "clean traffic"
)

// Verdict is the result of one check in the evaluation chain.
type Verdict struct {
	Status    Status
	Outcome   model.Outcome
	Reason    string
	RuleID    string
	Inspector string
}

func Continue() Verdict {
	return Verdict{Status: StatusContinue}
}

func Permit(reason string) Verdict {
	return Verdict{Status: StatusPermit, Outcome: model.Permitted, Reason: reason}
}

func Block(outcome model.Outcome, reason string) Verdict {
	return Verdict{Status: StatusBlock, Outcome: outcome, Reason: reason}
}

// Flow is a request whose endpoints have already been resolved.
type Flow struct {
	Src      topology.Resolution
	Dst      topology.Resolution
	Protocol model.Protocol
}

type Check func(f *Flow) Verdict

// FirstVerdict runs checks in order and returns the first verdict that is not
// Continue. An exhausted chain is an implicit deny.
func FirstVerdict(f *Flow, checks ...Check) Verdict {
	for _, check := range checks {
		if v := check(f); v.Status != StatusContinue {
			return v
		}
	}
	return Block(model.BlockedByPolicy, ReasonImplicitDeny)
}

// SameSegment short-circuits traffic that never leaves its VLAN.
func SameSegment(f *Flow) Verdict {
	if f.Src.Segment.Number == f.Dst.Segment.Number {
		return Permit(ReasonSameSegment)
	}
	return Continue()
}

// RuleSet is an ordered ACL. Rules are matched first-wins in priority order;
// rules sharing a priority keep their list order.
type RuleSet struct {
	Rules []model.Rule
}

func NewRuleSet(rules []model.Rule) *RuleSet {
	ordered := make([]model.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return &RuleSet{Rules: ordered}
}

func (rs *RuleSet) Match(src, dst int, proto model.Protocol) (*model.Rule, bool) {
	for i := range rs.Rules {
		rule := &rs.Rules[i]
		if rule.SourceSegment != src || rule.DestSegment != dst {
			continue
		}
		if rule.Protocol == model.Any || rule.Protocol == proto {
			return rule, true
		}
	}
	return nil, false
}

// Evaluate never returns Continue: a miss is an implicit deny.
func (rs *RuleSet) Evaluate(f *Flow) Verdict {
	rule, ok := rs.Match(f.Src.Segment.Number, f.Dst.Segment.Number, f.Protocol)
	if !ok {
		return Block(model.BlockedByPolicy, ReasonImplicitDeny)
	}
	if rule.Action == model.Permit {
		v := Permit(fmt.Sprintf("permitted by rule %s", rule.ID))
		v.RuleID = rule.ID
		return v
	}
	v := Block(model.BlockedByPolicy, fmt.Sprintf("denied by rule %s", rule.ID))
	v.RuleID = rule.ID
	return v
}
