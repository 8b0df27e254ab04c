// Package dedupe tracks content fingerprints of recent imports so an
// identical upload is acknowledged once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 10000

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord atomically reports whether key was seen and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool
	// Unrecord forgets key so a failed import can be retried.
	Unrecord(ctx context.Context, key string)
	Size() int
}

// fifoDeduper evicts the oldest key once maxSize keys are held.
// maxSize <= 0 disables eviction.
type fifoDeduper struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	seen    map[string]*list.Element
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &fifoDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.order = list.New()
	d.seen = make(map[string]*list.Element)
	return d
}

func (d *fifoDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *fifoDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *fifoDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
