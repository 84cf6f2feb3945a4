package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"vlan-traffic-simulator/internal/model"
	"vlan-traffic-simulator/internal/topology"
)

// Evaluator is implemented by every transport that can turn a request into a
// decision record: the in-process Engine and the HTTP client.
type Evaluator interface {
	Evaluate(ctx context.Context, req *model.Request) (*model.DecisionRecord, error)
}

type Option func(e *Engine)

func WithSampler(s Sampler) Option {
	return func(e *Engine) {
		e.inspector = NewInspector(s)
	}
}

// WithSeed makes inspection reproducible. A zero seed keeps the shared
// unseeded generator.
func WithSeed(seed uint64) Option {
	return func(e *Engine) {
		if seed != 0 {
			e.inspector = NewInspector(NewSeededSampler(seed))
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

func WithNameMatching(enabled bool) Option {
	return func(e *Engine) {
		e.matchByName = enabled
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.log = logger
	}
}

type Engine struct {
	inspector   *Inspector
	now         func() time.Time
	newID       func() string
	matchByName bool
	log         *slog.Logger
}

func New(opts ...Option) *Engine {
	e := &Engine{
		inspector: NewInspector(nil),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	return e
}

// Evaluate satisfies Evaluator. The engine does no I/O, so ctx is not consulted.
func (e *Engine) Evaluate(_ context.Context, req *model.Request) (*model.DecisionRecord, error) {
	return e.Decide(req)
}

// Decide runs resolve, connectivity and inspection for one request and builds
// its decision record. Unresolvable endpoints produce a blocked record; only
// malformed input returns an error.
func (e *Engine) Decide(req *model.Request) (*model.DecisionRecord, error) {
	in, err := normalize(req)
	if err != nil {
		return nil, err
	}

	resolver := topology.NewResolver(in.Segments, topology.MatchByName(e.matchByName))
	src, srcErr := resolver.Resolve(in.SourceDeviceID)
	dst, dstErr := resolver.Resolve(in.DestDeviceID)
	if srcErr != nil || dstErr != nil {
		cause := srcErr
		if cause == nil {
			cause = dstErr
		}
		e.log.Debug("endpoint not resolved", "src", in.SourceDeviceID, "dst", in.DestDeviceID, "error", cause)
		return e.record(in, src, dst, Block(model.BlockedByPolicy, cause.Error())), nil
	}

	flow := &Flow{Src: src, Dst: dst, Protocol: in.Protocol}
	rules := NewRuleSet(in.Rules)
	verdict := FirstVerdict(flow, SameSegment, rules.Evaluate)

	if verdict.Status == StatusPermit && in.Inspection.Enabled() {
		if iv := e.inspector.Inspect(in.Inspection, in.Protocol); iv.Status == StatusBlock {
			iv.RuleID = verdict.RuleID
			verdict = iv
		} else {
			verdict.Reason += "; inspection: " + ReasonCleanTraffic
		}
	}

	rec := e.record(in, src, dst, verdict)
	e.log.Debug("decision",
		"id", rec.ID,
		"src", rec.SourceDevice,
		"dst", rec.DestDevice,
		"protocol", rec.Protocol,
		"outcome", rec.Outcome,
		"rule", rec.MatchedRuleID)
	return rec, nil
}

func (e *Engine) record(req *model.Request, src, dst topology.Resolution, v Verdict) *model.DecisionRecord {
	rec := &model.DecisionRecord{
		ID:            e.newID(),
		Timestamp:     e.now(),
		SourceDevice:  req.SourceDeviceID,
		SourceSegment: "unknown",
		DestDevice:    req.DestDeviceID,
		DestSegment:   "unknown",
		Protocol:      req.Protocol,
		Outcome:       v.Outcome,
		Reason:        v.Reason,
		MatchedRuleID: v.RuleID,
		Inspector:     v.Inspector,
	}
	if src.Device != nil {
		rec.SourceDevice = src.Device.Label()
		rec.SourceSegment = src.Segment.Label()
	}
	if dst.Device != nil {
		rec.DestDevice = dst.Device.Label()
		rec.DestSegment = dst.Segment.Label()
	}
	return rec
}

// normalize validates req and returns a copy with canonical protocol and
// action tokens. The caller's request and slices are left untouched.
func normalize(req *model.Request) (*model.Request, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", model.ErrMalformedRequest)
	}
	out := *req
	out.SourceDeviceID = strings.TrimSpace(req.SourceDeviceID)
	out.DestDeviceID = strings.TrimSpace(req.DestDeviceID)
	if out.SourceDeviceID == "" {
		return nil, fmt.Errorf("%w: source device id is required", model.ErrMalformedRequest)
	}
	if out.DestDeviceID == "" {
		return nil, fmt.Errorf("%w: destination device id is required", model.ErrMalformedRequest)
	}

	proto, err := model.ParseProtocol(string(req.Protocol))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrMalformedRequest, err)
	}
	if !proto.IsConcrete() {
		return nil, fmt.Errorf("%w: request protocol must be TCP, UDP or ICMP, got %s", model.ErrMalformedRequest, proto)
	}
	out.Protocol = proto

	out.Rules = make([]model.Rule, len(req.Rules))
	for i, rule := range req.Rules {
		if strings.TrimSpace(rule.ID) == "" {
			return nil, fmt.Errorf("%w: rule at position %d has no id", model.ErrMalformedRequest, i)
		}
		if rule.Protocol, err = model.ParseProtocol(string(rule.Protocol)); err != nil {
			return nil, fmt.Errorf("%w: rule %s: %w", model.ErrMalformedRequest, rule.ID, err)
		}
		if rule.Action, err = model.ParseAction(string(rule.Action)); err != nil {
			return nil, fmt.Errorf("%w: rule %s: %w", model.ErrMalformedRequest, rule.ID, err)
		}
		out.Rules[i] = rule
	}

	if err := topology.Validate(req.Segments); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrMalformedRequest, err)
	}
	return &out, nil
}
