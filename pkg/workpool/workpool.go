// Package workpool runs tasks on a fixed set of workers, each with its own
// autorelease pool stack.
//
// A memory.Manager is single-goroutine, so every worker owns a private
// manager and runs each task inside a fresh scope on it. Whatever a task
// autoreleases drains as soon as the task returns.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"huta_go/pkg/memory"
)

// ErrStopped is returned by Submit once the pool stopped accepting tasks.
var ErrStopped = errors.New("workpool: stopped")

// Task is a unit of work. m is the worker's manager; objects the task creates
// should bind to it with memory.WithManager(m).
type Task func(m *memory.Manager) error

// Config sizes a Pool.
type Config struct {
	// Workers is the number of worker goroutines.
	Workers int
	// Queue is the number of tasks buffered ahead of the workers.
	Queue int
	// Memory configures each worker's private manager.
	Memory memory.Config
}

// DefaultConfig returns a pool with 4 workers and a queue of 64.
func DefaultConfig() Config {
	return Config{
		Workers: 4,
		Queue:   64,
		Memory:  memory.DefaultConfig(),
	}
}

// Stats counts task outcomes.
type Stats struct {
	Submitted int64
	Completed int64
	Failed    int64
}

// Pool is a managed worker pool. Its last Release stops intake, waits for
// queued tasks and tears the workers down.
type Pool struct {
	memory.Object
	cfg     Config
	workers []memory.Handle[*Worker]
	tasks   chan Task
	group   errgroup.Group

	mu      sync.RWMutex
	stopped bool
	once    sync.Once
	err     error

	submitted atomic.Int64
}

// New starts cfg.Workers workers. The returned pool is owned by the caller.
func New(cfg Config, opts ...memory.Option) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Queue < 0 {
		cfg.Queue = 0
	}
	p := &Pool{
		cfg:   cfg,
		tasks: make(chan Task, cfg.Queue),
	}
	p.Init(p, opts...)
	if cfg.Memory.Logger == nil {
		p.cfg.Memory.Logger = p.Manager().Logger()
	}

	p.workers = make([]memory.Handle[*Worker], 0, cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		w := newWorker(i, p.cfg.Memory, p.ManagerOption())
		p.workers = append(p.workers, memory.Adopt(w))
		p.group.Go(func() error {
			return w.loop(p.tasks)
		})
	}
	return p
}

// Submit queues task, blocking while the queue is full. It fails with
// ErrStopped after Wait or with ctx's error when ctx ends first.
// Tasks must not Submit to their own pool while it is stopping.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("workpool: submit: %w", memory.ErrNilObject)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait stops intake, lets the workers finish every queued task and returns
// the first task error. Later calls return the same error.
func (p *Pool) Wait() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		close(p.tasks)
		p.mu.Unlock()
		p.err = p.group.Wait()
	})
	return p.err
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return len(p.workers)
}

// Worker returns the i-th worker without transferring ownership.
func (p *Pool) Worker(i int) *Worker {
	return p.workers[i].Get()
}

// Stats sums task outcomes across workers.
func (p *Pool) Stats() Stats {
	s := Stats{Submitted: p.submitted.Load()}
	for i := range p.workers {
		w := p.workers[i].Get()
		s.Completed += w.completed.Load()
		s.Failed += w.failed.Load()
	}
	return s
}

// Dealloc stops the pool and releases its workers.
func (p *Pool) Dealloc() {
	if err := p.Wait(); err != nil {
		p.Manager().Logger().Printf("[workpool] stopped with error: %v", err)
	}
	for i := range p.workers {
		p.workers[i].Reset()
	}
	p.workers = nil
}

func (p *Pool) String() string {
	return fmt.Sprintf("workpool.Pool(workers=%d)", len(p.workers))
}
