package engine

import (
	"math/rand/v2"
	"sync"

	"vlan-traffic-simulator/internal/model"
)

// Sampler yields uniform samples in [0,1).
type Sampler interface {
	Float64() float64
}

type globalSampler struct{}

func (globalSampler) Float64() float64 { return rand.Float64() }

type lockedSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (s *lockedSampler) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewSeededSampler returns a deterministic sampler that is safe to share
// between goroutines.
func NewSeededSampler(seed uint64) Sampler {
	return &lockedSampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type probe struct {
	name      string
	threshold float64
	tcpOnly   bool
	reason    string
	enabled   func(cfg model.InspectionConfig) bool
}

// Probe order is significant: the first probe to fire wins.
var probes = []probe{
	{
		name:      model.InspectorIPS,
		threshold: 0.8,
		reason:    "threat detected by intrusion prevention",
		enabled:   func(cfg model.InspectionConfig) bool { return cfg.IPS },
	},
	{
		name:      model.InspectorAntiMalware,
		threshold: 0.9,
		reason:    "malware detected by anti-malware gateway",
		enabled:   func(cfg model.InspectionConfig) bool { return cfg.AntiMalware },
	},
	{
		name:      model.InspectorWebFilter,
		threshold: 0.85,
		tcpOnly:   true,
		reason:    "content blocked by web filter",
		enabled:   func(cfg model.InspectionConfig) bool { return cfg.WebFilter },
	},
}

type Inspector struct {
	sampler Sampler
}

func NewInspector(sampler Sampler) *Inspector {
	if sampler == nil {
		sampler = globalSampler{}
	}
	return &Inspector{sampler: sampler}
}

// Inspect returns Block when a probe fires and Continue otherwise. Only
// enabled probes draw a sample.
func (in *Inspector) Inspect(cfg model.InspectionConfig, proto model.Protocol) Verdict {
	for _, p := range probes {
		if !p.enabled(cfg) {
			continue
		}
		if p.tcpOnly && proto != model.TCP {
			continue
		}
		if in.sampler.Float64() > p.threshold {
			v := Block(model.BlockedByInspection, p.reason)
			v.Inspector = p.name
			return v
		}
	}
	return Continue()
}
