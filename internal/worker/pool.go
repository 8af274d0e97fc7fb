package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/teamtask-api/internal/config"
	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/redact"
	"github.com/sourcegraph/conc/panics"
)

// Errors returned by Submit.
var (
	ErrQueueFull = errors.New("job queue is full")
	ErrStopped   = errors.New("worker pool is stopped")
	ErrPanic     = errors.New("job panicked")
)

// Config holds configuration for the pool.
type Config struct {
	// Workers determines how many goroutines process jobs.
	// If zero or negative, defaults to 1.
	Workers int

	// QueueSize is the buffer size of the job queue.
	QueueSize int

	// JobTimeout bounds a single job run. Zero means no timeout.
	JobTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 30 * time.Second,
	}
}

// ConfigFrom converts the delivery section of the application config.
func ConfigFrom(cfg config.DeliveryConfig) Config {
	return Config{
		Workers:    cfg.Workers,
		QueueSize:  cfg.QueueSize,
		JobTimeout: cfg.JobTimeout,
	}
}

// Pool manages the worker goroutines and their queue.
type Pool struct {
	jobs       chan Job
	config     Config
	logger     *slog.Logger
	errHandler func(job Job, err error)

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

// NewPool creates a pool. Call Start before submitting work.
func NewPool(cfg Config, log *slog.Logger) *Pool {
	log = log.With("component", "worker_pool")

	if cfg.Workers <= 0 {
		log.Warn("invalid worker count specified, using default",
			"specified_count", cfg.Workers,
			"default_count", 1)
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	return &Pool{
		jobs:   make(chan Job, cfg.QueueSize),
		config: cfg,
		logger: log,
		errHandler: func(job Job, err error) {
			log.Error("job execution failed",
				slog.String("job", job.Name()),
				redact.ErrorAttr(err))
		},
	}
}

// SetErrorHandler replaces the default handler, which only logs.
// It must be called before Start.
func (p *Pool) SetErrorHandler(handler func(job Job, err error)) {
	p.errHandler = handler
}

// Start launches the workers. Calling it twice is a no-op.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	p.logger.Info("worker pool started",
		"workers", p.config.Workers,
		"queue_size", p.config.QueueSize)
}

// Submit queues a job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrStopped
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(p.jobs))
	}
}

// Stop refuses new jobs, lets the workers drain what is already queued, and
// waits for them to finish or for ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobs)
	started := p.started
	p.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool stop interrupted", "error", ctx.Err())
		return ctx.Err()
	}
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	p.logger.Debug("starting worker", "worker_id", id)

	for job := range p.jobs {
		p.process(job, id)
	}

	p.logger.Debug("job channel closed, stopping worker", "worker_id", id)
}

func (p *Pool) process(job Job, workerID int) {
	log := p.logger.With("job", job.Name(), "worker_id", workerID)
	ctx := logger.WithLogger(context.Background(), log)

	if p.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.JobTimeout)
		defer cancel()
	}

	if err := runJob(ctx, job); err != nil {
		p.errHandler(job, err)
		return
	}
	log.Debug("job completed")
}

// runJob executes job inside a panic boundary and converts a panic into an
// error wrapping ErrPanic.
func runJob(ctx context.Context, job Job) error {
	var err error
	var catcher panics.Catcher
	catcher.Try(func() {
		err = job.Run(ctx)
	})
	if rec := catcher.Recovered(); rec != nil {
		return fmt.Errorf("%w: %v", ErrPanic, rec.Value)
	}
	return err
}
