package topology

import (
	"errors"
	"fmt"

	"vlan-traffic-simulator/internal/model"
)

var ErrDeviceNotFound = errors.New("device not found in topology")

// TopologyError reports an endpoint that no segment owns.
type TopologyError struct {
	DeviceID string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("%s: %s", ErrDeviceNotFound, e.DeviceID)
}

func (e *TopologyError) Unwrap() error { return ErrDeviceNotFound }

type Resolution struct {
	Segment *model.Segment
	Device  *model.Device
}

type Option func(r *Resolver)

// MatchByName lets Resolve fall back to device display names. Identifier
// matches always win over name matches.
func MatchByName(enabled bool) Option {
	return func(r *Resolver) {
		r.byName = enabled
	}
}

type Resolver struct {
	segments []model.Segment
	byName   bool
}

func NewResolver(segments []model.Segment, opts ...Option) *Resolver {
	r := &Resolver{segments: segments}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Resolve(id string) (Resolution, error) {
	if res, ok := r.find(func(d *model.Device) bool { return d.ID == id }); ok {
		return res, nil
	}
	if r.byName {
		if res, ok := r.find(func(d *model.Device) bool { return d.Name == id }); ok {
			return res, nil
		}
	}
	return Resolution{}, &TopologyError{DeviceID: id}
}

func (r *Resolver) find(match func(d *model.Device) bool) (Resolution, bool) {
	for i := range r.segments {
		seg := &r.segments[i]
		for j := range seg.Devices {
			if match(&seg.Devices[j]) {
				return Resolution{Segment: seg, Device: &seg.Devices[j]}, true
			}
		}
	}
	return Resolution{}, false
}
