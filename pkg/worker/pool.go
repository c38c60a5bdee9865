package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/jwalitptl/bloodlink-api/pkg/logger"
	"github.com/jwalitptl/bloodlink-api/pkg/metrics"
)

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("worker pool stopped")

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("worker queue full")

// Task is a detached unit of work. Its context is owned by the pool, never by
// the caller that submitted it.
type Task func(ctx context.Context) error

type PoolConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

type job struct {
	name string
	fn   Task
}

// Pool runs fire-and-forget tasks on a fixed set of goroutines fed by a
// bounded queue. Task failures and panics are logged, never returned.
type Pool struct {
	config  PoolConfig
	queue   chan job
	logger  *logger.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewPool(config PoolConfig, logger *logger.Logger, m *metrics.Metrics) *Pool {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.TaskTimeout <= 0 {
		config.TaskTimeout = 2 * time.Minute
	}

	p := &Pool{
		config:  config,
		queue:   make(chan job, config.QueueSize),
		logger:  logger,
		metrics: m,
	}

	for i := 0; i < config.Workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

// Submit enqueues fn without waiting for it to run.
func (p *Pool) Submit(name string, fn Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.queue <- job{name: name, fn: fn}:
		p.metrics.TaskQueueDepth.Set(float64(len(p.queue)))
		return nil
	default:
		p.logger.Warn("Task queue full, dropping task", "task", name)
		p.metrics.TasksProcessed.WithLabelValues(name, "dropped").Inc()
		return ErrQueueFull
	}
}

// Stop refuses new tasks and waits for queued ones to finish.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) run() {
	defer p.wg.Done()

	for j := range p.queue {
		p.metrics.TaskQueueDepth.Set(float64(len(p.queue)))
		p.execute(j)
	}
}

func (p *Pool) execute(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.TaskTimeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				p.logger.Warn("Recovered panic in task", "task", j.name, "stack", string(debug.Stack()))
			}
		}()
		err = j.fn(ctx)
	}()

	if err != nil {
		p.metrics.TasksProcessed.WithLabelValues(j.name, "error").Inc()
		p.logger.Error(err, "Detached task failed", "task", j.name)
		return
	}
	p.metrics.TasksProcessed.WithLabelValues(j.name, "success").Inc()
}

// Retry calls fn up to attempts times, sleeping delay between failures.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return err
			case <-time.After(delay):
			}
		}
	}
	return err
}
