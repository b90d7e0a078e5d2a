package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job asks for one ingest run over the inbox.
type Job struct {
	Reason      string // "startup", "poll", "watch"
	Path        string // file that triggered a watch job, if any
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler performs one run.
type Handler func(ctx context.Context, job Job) error

// RunQueue executes jobs on a fixed set of workers. With the default single
// worker runs never overlap. When the buffer is full new jobs are dropped:
// a pending run already covers whatever triggered them.
//
// Every job context derives from the queue's base context, which Shutdown
// cancels once its own context expires.
type RunQueue struct {
	handle  Handler
	logger  *slog.Logger
	workers int
	timeout time.Duration
	base    context.Context

	ctx    context.Context
	cancel context.CancelFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*RunQueue)

func WithWorkers(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *RunQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithRunTimeout(d time.Duration) Option {
	return func(q *RunQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithBaseContext makes jobs inherit ctx, so cancelling it stops running jobs.
func WithBaseContext(ctx context.Context) Option {
	return func(q *RunQueue) {
		if ctx != nil {
			q.base = ctx
		}
	}
}

func NewRunQueue(handle Handler, logger *slog.Logger, opts ...Option) *RunQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &RunQueue{
		handle:  handle,
		logger:  logger,
		workers: 1,
		timeout: 30 * time.Minute,
		base:    context.Background(),
		ch:      make(chan Job, 1),
	}
	for _, o := range opts {
		o(q)
	}
	q.ctx, q.cancel = context.WithCancel(q.base)
	q.start()
	return q
}

func (q *RunQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("async.worker.started", "worker_id", workerID)

				for job := range q.ch {
					if err := q.ctx.Err(); err != nil {
						q.logger.Warn("async.run.discarded", "worker_id", workerID, "reason", job.Reason, "trace_id", job.TraceID, "error", err)
						continue
					}
					start := time.Now()
					ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
					err := q.handle(ctx, job)
					cancel()

					if err != nil {
						q.logger.Error("async.run.failed", "worker_id", workerID, "reason", job.Reason, "trace_id", job.TraceID, "error", err)
					} else {
						q.logger.Info("async.run.ok", "worker_id", workerID, "reason", job.Reason, "trace_id", job.TraceID,
							"elapsed_ms", time.Since(start).Milliseconds())
					}
				}

				q.logger.Debug("async.worker.stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *RunQueue) Enqueue(_ context.Context, job Job) error {
	q.TryEnqueue(job)
	return nil
}

// TryEnqueue submits job. It reports false when the job was dropped because
// the queue is full or shutting down.
func (q *RunQueue) TryEnqueue(job Job) bool {
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "reason", job.Reason)
		return false
	}
	select {
	case q.ch <- job:
		q.logger.Debug("async.run.queued", "reason", job.Reason, "path", job.Path, "trace_id", job.TraceID)
		return true
	default:
		q.logger.Debug("async.run.coalesced", "reason", job.Reason, "path", job.Path)
		return false
	}
}

// Shutdown stops accepting jobs and drains the buffer. When ctx expires
// first, running jobs are cancelled and queued ones discarded. Shutdown
// returns only after every worker has exited.
func (q *RunQueue) Shutdown(ctx context.Context) {
	defer q.cancel()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	case <-ctx.Done():
		q.logger.Warn("shutdown deadline reached, cancelling running jobs", "error", ctx.Err())
		q.cancel()
		<-done
		q.logger.Info("workers stopped, shutdown complete")
	}
}
