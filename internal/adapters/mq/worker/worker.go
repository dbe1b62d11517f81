// Package worker delivers queued synchronization intents to a sink.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/scoreboard/internal/adapters/mq/intent"
	"github.com/okian/scoreboard/internal/adapters/mq/queue"
	"github.com/okian/scoreboard/pkg/logger"
	"github.com/okian/scoreboard/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Queue defines how workers receive intents.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Item
}

// Worker delivers intents using the provided sink.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)
	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	sink    intent.Sink
	name    string
	timeout time.Duration

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, sink intent.Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case it, ok := <-items:
			if !ok {
				return
			}
			w.deliver(it)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// deliver hands one intent to the sink under the submitter's context and
// resolves it with the sink's result.
func (w *InMemoryWorker) deliver(p *intent.Pending) {
	ctx := p.Context()
	if err := ctx.Err(); err != nil {
		p.Resolve(err)
		metrics.RecordIntent(p.Intent.Operation(), "abandoned", msSince(p.Enqueued))
		return
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	err := w.sink.Act(ctx, p.Intent)
	status := "ok"
	if err != nil {
		status = "error"
		metrics.RecordErrorByComponent("worker", "sink_error")
		w.logger.Error(ctx, "intent delivery failed",
			logger.String("channel", p.Intent.Channel),
			logger.String("path", p.Intent.Path),
			logger.Error(err))
	}
	metrics.RecordIntent(p.Intent.Operation(), status, msSince(p.Enqueued))
	p.Resolve(err)
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

// Pool manages the workers draining one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue
	sink    intent.Sink

	logger logger.Logger
}

// NewPool creates a new worker pool. A single worker keeps intents in
// submission order. opts apply to every worker.
func NewPool(workerCount int, q queue.Queue, sink intent.Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		sink:    sink,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, sink, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Submit queues in and waits for its acknowledgement. The sink's error is
// returned unchanged; a full or closed queue yields intent.ErrRejected.
func (p *Pool) Submit(ctx context.Context, in intent.Intent) error {
	pending := intent.NewPending(ctx, in)
	if !p.queue.Enqueue(ctx, pending) {
		metrics.RecordIntent(in.Operation(), "rejected", 0)
		return intent.ErrRejected
	}
	return pending.Wait(ctx)
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue, lets workers drain what is left and waits for
// them to finish or ctx to time out.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", shutdownCtx.Err())
		}
	}
	return nil
}
