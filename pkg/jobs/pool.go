package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of queued background work.
type Task struct {
	ID      string
	Kind    string
	Payload any
}

// Func processes a task. A non-nil error triggers a retry until
// MaxAttempts is reached.
type Func func(ctx context.Context, task Task) error

// PoolConfig tunes a Pool. Zero values fall back to sane defaults.
type PoolConfig struct {
	Workers     int
	QueueDepth  int
	MaxAttempts int
	RetryDelay  time.Duration
	Logger      *zap.Logger
}

// Pool runs tasks on a fixed set of worker goroutines. Failed tasks are
// retried in place by the worker that picked them up, so a stuck task
// never re-enters the queue.
type Pool struct {
	name string
	run  Func

	workers     int
	maxAttempts int
	retryDelay  time.Duration
	logger      *zap.Logger

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewPool builds an idle pool; call Start to launch the workers.
func NewPool(name string, run Func, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = cfg.Workers * 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Pool{
		name:        name,
		run:         run,
		workers:     cfg.Workers,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      cfg.Logger,
		tasks:       make(chan Task, cfg.QueueDepth),
	}
}

// Start launches the workers. Subsequent calls are no-ops.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.started = true
	p.logger.Sugar().Infow("worker pool started", "pool", p.name, "workers", p.workers)
}

// Stop cancels the workers and blocks until they exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.cancel()
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Sugar().Infow("worker pool stopped", "pool", p.name)
}

// Submit queues a task, blocking while the queue is full.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	ctx := p.ctx
	started := p.started
	p.mu.Unlock()

	if !started {
		return fmt.Errorf("pool %s not started", p.name)
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("pool %s stopped: %w", p.name, ctx.Err())
	case p.tasks <- task:
		return nil
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			p.attempt(task)
		}
	}
}

func (p *Pool) attempt(task Task) {
	log := p.logger.Sugar()
	for attempt := 1; ; attempt++ {
		err := p.run(p.ctx, task)
		if err == nil {
			return
		}
		if attempt >= p.maxAttempts {
			log.Errorw("task abandoned", "pool", p.name, "task_id", task.ID, "kind", task.Kind, "attempts", attempt, "error", err)
			return
		}
		log.Warnw("task failed, retrying", "pool", p.name, "task_id", task.ID, "kind", task.Kind, "attempt", attempt, "error", err)

		timer := time.NewTimer(p.retryDelay)
		select {
		case <-p.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
