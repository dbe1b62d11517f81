// Package dedupe tracks which (team, stage, round) slots already hold a valid
// score so that later submissions for the same slot are rejected.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/scoreboard/internal/domain/model"
)

// Deduper records accepted slot keys. There is no eviction: forgetting a key
// would let a duplicate through.
type Deduper interface {
	// SeenAndRecord atomically checks if key was accepted before and records
	// it for owner if not. Returns true if the key was already taken.
	SeenAndRecord(ctx context.Context, key model.Key, owner string) bool

	// Owner returns the id recorded for key.
	Owner(ctx context.Context, key model.Key) (string, bool)

	// Unrecord frees key, e.g. after its record was deleted.
	Unrecord(ctx context.Context, key model.Key)

	// Reset forgets every key; used before a full revalidation.
	Reset(ctx context.Context)

	Size() int64
}

type inMemoryDeduper struct {
	mu           sync.RWMutex
	seen         map[model.Key]string
	capacityHint int
	size         atomic.Int64
}

// NewInMemoryDeduper creates a map-backed deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[model.Key]string, d.capacityHint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key model.Key, owner string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = owner
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Owner(_ context.Context, key model.Key) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	owner, ok := d.seen[key]
	return owner, ok
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key model.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Reset(_ context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = make(map[model.Key]string, d.capacityHint)
	d.size.Store(0)
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
