// Package queue holds pending synchronization intents until a worker
// delivers them.
//
// Enqueue never blocks: a full or closed queue rejects the intent and the
// caller reports backpressure.
package queue

import (
	"context"
	"sync"

	"github.com/okian/scoreboard/internal/adapters/mq/intent"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
)

// Item is the payload type flowing through the queue.
type Item = *intent.Pending

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an item to the queue.
	// Returns false if the queue is full or closed and the item was not enqueued.
	Enqueue(ctx context.Context, it Item) bool
	// Dequeue returns a channel that will receive items as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan Item
	// Len returns the current number of queued items.
	Len(ctx context.Context) int
	// Capacity returns the maximum number of queued items.
	Capacity() int
	// Close stops accepting items; queued items are still delivered.
	Close() error
	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Item
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Item, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds an item to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, it Item) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.items <- it:
		metrics.UpdateQueueSize(len(q.items))
		return true
	case <-ctx.Done():
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive items as they become available.
// An item taken off the queue after ctx is done is resolved with ctx's error
// so its submitter does not wait forever.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Item {
	out := make(chan Item)

	go func() {
		defer close(out)
		for it := range q.items {
			select {
			case out <- it:
				metrics.UpdateQueueSize(len(q.items))
			case <-ctx.Done():
				it.Resolve(ctx.Err())
				return
			}
		}
	}()

	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the maximum number of queued items.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
