// Package queue holds fetch jobs waiting for a scraper worker.
//
// The queue is in memory and bounded; one ingestion run fills it with the
// roster and closes it once every login is queued.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/dedidash/internal/domain/model"
	"github.com/okian/dedidash/pkg/metrics"
)

// defaultCapacity covers any roster a team would configure.
const defaultCapacity = 1024

// Sentinel errors for Fill.
var (
	ErrClosed = errors.New("fetch queue closed")
	ErrFull   = errors.New("fetch queue full")
)

// Job is one roster login waiting to be scraped.
type Job = model.FetchJob

// Queue hands fetch jobs from the run that plans them to the workers that
// scrape them.
type Queue interface {
	// Enqueue adds a job without blocking. It reports false when the queue
	// is closed or full.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue streams jobs until the queue is closed and drained or ctx ends.
	Dequeue(ctx context.Context) <-chan Job

	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs are still delivered.
	Close() error

	IsClosed() bool
}

// Option configures an InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity bounds the number of queued jobs. Non-positive values keep
// the default.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// InMemoryQueue implements Queue on a channel sized to its capacity.
type InMemoryQueue struct {
	mu       sync.RWMutex
	jobs     chan Job
	capacity int
	closed   bool
}

// NewInMemoryQueue creates an open, empty queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds j unless the queue is closed, full or ctx is done.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.rejected("closed")
		return false
	}
	if err := ctx.Err(); err != nil {
		q.rejected("context_cancelled")
		return false
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	default:
		q.rejected("queue_full")
		return false
	}
}

func (q *InMemoryQueue) rejected(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

// Dequeue streams queued jobs to one consumer.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			var (
				j  Job
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case j, ok = <-q.jobs:
			}
			if !ok {
				return
			}
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the number of jobs not yet handed to a worker.
func (q *InMemoryQueue) Len(context.Context) int {
	n := len(q.jobs)
	metrics.UpdateQueueSize(n)
	return n
}

// Close stops accepting jobs. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// Fill enqueues every job and then closes q so consumers stop once it drains.
// It fails on the first job that cannot be queued.
func Fill(ctx context.Context, q Queue, jobs []Job) error {
	defer q.Close() //nolint:errcheck // closing an in-memory queue cannot fail
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if q.IsClosed() {
			return ErrClosed
		}
		if !q.Enqueue(ctx, j) {
			return fmt.Errorf("%w: job for %s", ErrFull, j.Player)
		}
	}
	return nil
}
