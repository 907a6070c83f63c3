package jobs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Job is one unit of work handed to a Handler.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Enqueued time.Time
}

// Handler processes a job. A returned error is logged and counted; the job is
// not retried.
type Handler func(context.Context, Job) error

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Stats counts handled jobs.
type Stats struct {
	Processed int64
	Failed    int64
}

// Queue is a bounded in-memory worker pool. Jobs are dequeued in enqueue
// order; with one worker they also complete in that order.
type Queue struct {
	name    string
	handler Handler
	workers int
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool

	processed atomic.Int64
	failed    atomic.Int64
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		workers: cfg.Workers,
		logger:  cfg.Logger,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Later calls are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.logger.Debug("queue started", zap.String("queue", q.name), zap.Int("workers", q.workers))
}

// Stop cancels the workers and waits for in-flight handlers to return.
// Buffered jobs that were not picked up are dropped.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()

	stats := q.Stats()
	q.logger.Debug("queue stopped",
		zap.String("queue", q.name),
		zap.Int64("processed", stats.Processed),
		zap.Int64("failed", stats.Failed),
	)
}

// Workers reports the configured concurrency.
func (q *Queue) Workers() int {
	return q.workers
}

// Stats returns the handled job counters.
func (q *Queue) Stats() Stats {
	return Stats{Processed: q.processed.Load(), Failed: q.failed.Load()}
}

// Enqueue pushes a job, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("queue %s stopped: %w", q.name, err)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.handle(job)
		}
	}
}

func (q *Queue) handle(job Job) {
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			q.logger.Error("job panicked", zap.String("queue", q.name), zap.String("job_id", job.ID), zap.Any("panic", r))
		}
	}()
	err := q.handler(q.ctx, job)
	q.processed.Add(1)
	if err != nil {
		q.failed.Add(1)
		q.logger.Debug("job failed", zap.String("queue", q.name), zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(err))
	}
}
