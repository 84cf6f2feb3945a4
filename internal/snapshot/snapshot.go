package snapshot

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"vlan-traffic-simulator/internal/model"
)

const key = "topology"

// Source is the read side of a topology store.
type Source interface {
	ListSegments(ctx context.Context) ([]model.Segment, error)
	ListRules(ctx context.Context) ([]model.Rule, error)
}

// Snapshot is a consistent view of segments and rules. It is shared between
// readers and must not be modified.
type Snapshot struct {
	Segments []model.Segment
	Rules    []model.Rule
	LoadedAt time.Time
}

// Static serves a fixed topology, such as one read from a file.
type Static struct {
	Segments []model.Segment
	Rules    []model.Rule
}

func (s *Static) ListSegments(context.Context) ([]model.Segment, error) { return s.Segments, nil }

func (s *Static) ListRules(context.Context) ([]model.Rule, error) { return s.Rules, nil }

type Cache struct {
	src   Source
	ttl   time.Duration
	cache *cache.Cache
	group singleflight.Group
	// gen is bumped by Invalidate; a fetch only fills the cache when no
	// Invalidate happened while it ran.
	gen atomic.Uint64
}

// New wraps src. A ttl <= 0 disables caching and every Load hits src.
func New(src Source, ttl time.Duration) *Cache {
	c := &Cache{src: src, ttl: ttl}
	if ttl > 0 {
		c.cache = cache.New(ttl, 2*ttl)
	}
	return c
}

func (c *Cache) Load(ctx context.Context) (*Snapshot, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			return v.(*Snapshot), nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		gen := c.gen.Load()
		snap, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		if c.cache != nil && c.gen.Load() == gen {
			c.cache.Set(key, snap, cache.DefaultExpiration)
		}
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Cache) fetch(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Segments, err = c.src.ListSegments(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Rules, err = c.src.ListRules(gCtx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load topology snapshot: %w", err)
	}
	snap.LoadedAt = time.Now()
	return snap, nil
}

// Invalidate drops the cached snapshot so the next Load observes every write
// made before the call.
func (c *Cache) Invalidate() {
	c.gen.Add(1)
	if c.cache != nil {
		c.cache.Delete(key)
	}
	c.group.Forget(key)
}
