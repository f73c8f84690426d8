// Package executor runs fire-and-forget background work, such as fanning a
// new-post event out to feed subscribers after the HTTP response is written.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Config sizes the pool.
type Config struct {
	// Workers is the number of goroutines draining the queue.
	Workers int
	// QueueSize bounds how many tasks can wait. Submit drops tasks beyond it.
	QueueSize int
	// TaskTimeout bounds a single task run.
	TaskTimeout time.Duration
}

// DefaultConfig returns a small pool suitable for broadcast fan-out.
func DefaultConfig() Config {
	return Config{
		Workers:     2,
		QueueSize:   64,
		TaskTimeout: 30 * time.Second,
	}
}

// Pool is a fixed set of workers reading from a bounded queue.
type Pool struct {
	config Config
	logger *slog.Logger
	tasks  chan Task
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	startDone sync.Once
	stopDone  sync.Once
}

var _ Executor = (*Pool)(nil)

// NewPool initializes a pool. Call Start before submitting work.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	return &Pool{
		config: cfg,
		logger: logger,
		tasks:  make(chan Task, cfg.QueueSize),
	}
}

// Start launches the workers. Calling it more than once is a no-op.
func (p *Pool) Start() {
	p.startDone.Do(func() {
		p.logger.Info("starting background executor",
			slog.Int("workers", p.config.Workers),
			slog.Int("queueSize", p.config.QueueSize),
		)
		for i := 0; i < p.config.Workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

// Submit enqueues a task without blocking. It returns false when the queue is
// full or the pool has been stopped; the task is then dropped and logged.
func (p *Pool) Submit(task Task) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		p.logger.Warn("executor stopped, dropping task", slog.String("task", task.Name))
		return false
	}

	select {
	case p.tasks <- task:
		return true
	default:
		p.logger.Warn("executor queue full, dropping task", slog.String("task", task.Name))
		return false
	}
}

// Stop refuses new tasks, lets the workers finish what is already queued, and
// waits for them to exit.
func (p *Pool) Stop() {
	p.stopDone.Do(func() {
		p.logger.Info("shutting down background executor")

		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()

		p.wg.Wait()
	})
}

// worker drains the queue until it is closed.
func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		p.run(task)
	}
}

// run executes one task, turning errors and panics into log lines.
func (p *Pool) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked",
				slog.String("task", task.Name),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	if err := task.Run(ctx); err != nil {
		p.logger.Warn("background task failed",
			slog.String("task", task.Name),
			slog.String("error", err.Error()),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}

	p.logger.Debug("background task done",
		slog.String("task", task.Name),
		slog.Duration("duration", time.Since(start)),
	)
}
