package recorder

import (
	"context"
	"sync"

	"vlan-traffic-simulator/internal/model"
)

const DefaultCapacity = 50

// Recorder retains decision records for later review. Page numbers start at
// 1 and pages are ordered newest first.
type Recorder interface {
	Record(ctx context.Context, rec *model.DecisionRecord) error
	Page(ctx context.Context, page, size int) ([]model.DecisionRecord, int64, error)
	Close() error
}

// bounds converts a page request into [start, end) over total entries.
func bounds(page, size int, total int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	start := int64((page - 1) * size)
	if start > total {
		start = total
	}
	end := start + int64(size)
	if end > total {
		end = total
	}
	return start, end
}

// Ring keeps the most recent records in memory and drops the oldest once full.
type Ring struct {
	mu    sync.Mutex
	buf   []model.DecisionRecord
	next  int
	count int
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{buf: make([]model.DecisionRecord, capacity)}
}

func (r *Ring) Record(_ context.Context, rec *model.DecisionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf[r.next] = *rec
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
	return nil
}

func (r *Ring) Page(_ context.Context, page, size int) ([]model.DecisionRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := int64(r.count)
	start, end := bounds(page, size, total)
	out := make([]model.DecisionRecord, 0, end-start)
	for i := start; i < end; i++ {
		idx := (r.next - 1 - int(i) + 2*len(r.buf)) % len(r.buf)
		out = append(out, r.buf[idx])
	}
	return out, total, nil
}

func (r *Ring) Close() error { return nil }

// DecisionStore is the persistence the store recorder writes through.
type DecisionStore interface {
	AppendDecision(ctx context.Context, rec *model.DecisionRecord) error
	ListDecisions(ctx context.Context, page, size int) ([]model.DecisionRecord, int64, error)
}

type storeRecorder struct {
	store DecisionStore
}

// StoreRecorder persists every record through store. Closing the recorder
// leaves store open.
func StoreRecorder(store DecisionStore) Recorder {
	return &storeRecorder{store: store}
}

func (r *storeRecorder) Record(ctx context.Context, rec *model.DecisionRecord) error {
	return r.store.AppendDecision(ctx, rec)
}

func (r *storeRecorder) Page(ctx context.Context, page, size int) ([]model.DecisionRecord, int64, error) {
	return r.store.ListDecisions(ctx, page, size)
}

func (r *storeRecorder) Close() error { return nil }
