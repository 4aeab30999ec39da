package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrDuplicate is returned by Enqueue when a coalescing queue already holds a
// job of the same type.
var ErrDuplicate = errors.New("job of this type already pending")

// Job represents a queued background task.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	// MaxRetries is how often a failed job is re-run. Zero disables retries.
	MaxRetries int
	// RetryDelay is the first backoff step. It doubles per attempt up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	// Coalesce keeps at most one pending or running job per type.
	Coalesce bool
	Logger   *zap.Logger
}

// Queue is an in-memory job dispatcher backed by goroutines. Jobs do not survive a restart.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig
	logger  *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	active  map[string]struct{}
	lastRun time.Time
	lastErr string

	processed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// Stats is a point-in-time view of queue throughput.
type Stats struct {
	Name      string     `json:"name"`
	Running   bool       `json:"running"`
	Pending   int        `json:"pending"`
	Processed int64      `json:"processed"`
	Failed    int64      `json:"failed"`
	Skipped   int64      `json:"skipped"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetryDelay < cfg.RetryDelay {
		cfg.MaxRetryDelay = time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		logger:  cfg.Logger.With(zap.String("queue", name)),
		jobs:    make(chan Job, cfg.BufferSize),
		active:  map[string]struct{}{},
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers), zap.Bool("coalesce", q.cfg.Coalesce))
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue pushes a job onto the queue without blocking. It fails when the queue
// is not running, the buffer is full, or a coalescing queue already holds the type.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started || q.ctx.Err() != nil {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not running", q.name)
	}
	if q.cfg.Coalesce && job.Attempt == 0 {
		if _, busy := q.active[job.Type]; busy {
			q.mu.Unlock()
			q.skipped.Add(1)
			return ErrDuplicate
		}
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	if job.ID == "" {
		job.ID = fmt.Sprintf("%s-%d", job.Type, job.Enqueued.UnixMilli())
	}

	select {
	case q.jobs <- job:
		q.active[job.Type] = struct{}{}
		q.mu.Unlock()
		return nil
	default:
		q.mu.Unlock()
		return fmt.Errorf("queue %s is full", q.name)
	}
}

// Schedule enqueues a job of jobType every interval until the queue stops.
func (q *Queue) Schedule(interval time.Duration, jobType string, payload interface{}) error {
	if interval <= 0 {
		return fmt.Errorf("queue %s: schedule interval must be positive", q.name)
	}
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()
	if !started {
		return fmt.Errorf("queue %s not running", q.name)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				err := q.Enqueue(Job{Type: jobType, Payload: payload})
				if err != nil && !errors.Is(err, ErrDuplicate) {
					q.logger.Warn("scheduled enqueue failed", zap.String("type", jobType), zap.Error(err))
				}
			}
		}
	}()
	return nil
}

// Stats reports pending and completed job counts.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	stats := Stats{
		Name:      q.name,
		Running:   q.started && q.ctx.Err() == nil,
		Pending:   len(q.jobs),
		Processed: q.processed.Load(),
		Failed:    q.failed.Load(),
		Skipped:   q.skipped.Load(),
		LastError: q.lastErr,
	}
	if !q.lastRun.IsZero() {
		last := q.lastRun
		stats.LastRun = &last
	}
	return stats
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			err := q.handler(q.ctx, job)
			q.finish(job, err)
			if err != nil {
				q.failed.Add(1)
				q.retry(job, err)
				continue
			}
			q.processed.Add(1)
			q.logger.Debug("job done", zap.Int("worker", workerID), zap.String("job_id", job.ID))
		}
	}
}

func (q *Queue) finish(job Job, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.lastRun = time.Now().UTC()
	q.lastErr = ""
	if err != nil {
		q.lastErr = err.Error()
	}
	if err == nil || job.Attempt >= q.cfg.MaxRetries {
		delete(q.active, job.Type)
	}
}

func (q *Queue) retry(job Job, err error) {
	if job.Attempt >= q.cfg.MaxRetries {
		q.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt+1), zap.Error(err))
		return
	}
	job.Attempt++
	delay := q.backoff(job.Attempt)
	q.logger.Warn("job failed, retrying", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Duration("delay", delay), zap.Error(err))

	q.wg.Add(1)
	go func(j Job) {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			return
		case <-timer.C:
			if err := q.Enqueue(j); err != nil {
				q.logger.Error("failed to requeue job", zap.String("job_id", j.ID), zap.Error(err))
				q.mu.Lock()
				delete(q.active, j.Type)
				q.mu.Unlock()
			}
		}
	}(job)
}

func (q *Queue) backoff(attempt int) time.Duration {
	delay := q.cfg.RetryDelay
	for i := 1; i < attempt && delay < q.cfg.MaxRetryDelay; i++ {
		delay *= 2
	}
	if delay > q.cfg.MaxRetryDelay {
		delay = q.cfg.MaxRetryDelay
	}
	return delay
}
