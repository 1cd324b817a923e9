// Package worker runs scraper fetch jobs off the queue.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/dedidash/internal/domain/model"
	"github.com/okian/dedidash/internal/domain/types"
	"github.com/okian/dedidash/pkg/logger"
	"github.com/okian/dedidash/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Job is what workers read off the queue.
type Job = model.FetchJob

// Fetcher scrapes the records of one player.
type Fetcher interface {
	Fetch(ctx context.Context, job Job) ([]types.Record, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, job Job) ([]types.Record, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, job Job) ([]types.Record, error) {
	return f(ctx, job)
}

// Sink receives every fetch result, failed or not.
type Sink interface {
	Deliver(ctx context.Context, res model.FetchResult)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs until the queue drains or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue is drained.
	Run(ctx context.Context)

	// Shutdown stops the worker after the job in flight.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for fetch jobs.
type InMemoryWorker struct {
	queue   Queue
	fetcher Fetcher
	sink    Sink
	name    string

	// delay is the pause between two fetches by this worker.
	delay time.Duration

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, fetcher Fetcher, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		fetcher:  fetcher,
		sink:     sink,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.GetOr(logger.NewNop()).Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.With(logger.String("worker", w.name))
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	first := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if !first && !w.pause(ctx) {
				return
			}
			first = false
			w.process(ctx, job)
		}
	}
}

// pause waits out the request delay. It returns false when stopped meanwhile.
func (w *InMemoryWorker) pause(ctx context.Context) bool {
	if w.delay <= 0 {
		return true
	}
	t := time.NewTimer(w.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.shutdown:
		return false
	case <-t.C:
		return true
	}
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, job Job) {
	start := time.Now()

	records, err := w.fetcher.Fetch(ctx, job)
	elapsed := time.Since(start)
	metrics.RecordWorkerProcessingLatency(float64(elapsed.Milliseconds()))

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "fetch_error")
		w.logger.Warn(ctx, "fetch failed",
			logger.String("run_id", job.RunID),
			logger.String("player", job.Player),
			logger.Error(err),
		)
	} else {
		w.logger.Debug(ctx, "fetched player",
			logger.String("run_id", job.RunID),
			logger.String("player", job.Player),
			logger.Int("records", len(records)),
			logger.Duration("elapsed", elapsed),
		)
	}

	w.sink.Deliver(ctx, model.FetchResult{
		Job:      job,
		Records:  records,
		Err:      err,
		Duration: elapsed,
	})
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. opts apply to every worker.
func NewPool(workerCount int, queue Queue, fetcher Fetcher, sink Sink, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
		logger:  logger.GetOr(logger.NewNop()).Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, fetcher, sink, wopts...)
	}

	return pool
}

// Size is the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	metrics.UpdateWorkerActiveCount(len(p.workers))
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned or ctx ends.
func (p *Pool) Wait(ctx context.Context) error {
	defer metrics.UpdateWorkerActiveCount(0)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for workers: %w", ctx.Err())
		}
	}
	return nil
}

// Shutdown closes the queue and stops all workers.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerActiveCount(0)

	return nil
}
