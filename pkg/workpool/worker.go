package workpool

import (
	"fmt"
	"sync/atomic"

	"huta_go/pkg/memory"
)

// Worker runs tasks on one goroutine with a private manager.
type Worker struct {
	memory.Object
	id        int
	manager   *memory.Manager
	completed atomic.Int64
	failed    atomic.Int64
}

func newWorker(id int, cfg memory.Config, opts ...memory.Option) *Worker {
	cfg.BootstrapName = fmt.Sprintf("worker %d autorelease pool", id)
	w := &Worker{
		id:      id,
		manager: memory.NewManager(cfg),
	}
	w.Init(w, opts...)
	return w
}

// ID returns the worker's index in its pool.
func (w *Worker) ID() int {
	return w.id
}

// TaskManager returns the private manager tasks run on. Only the worker's
// goroutine may use it while the pool runs.
func (w *Worker) TaskManager() *memory.Manager {
	return w.manager
}

// Completed returns how many tasks finished, failed ones included.
func (w *Worker) Completed() int64 {
	return w.completed.Load()
}

func (w *Worker) loop(tasks <-chan Task) error {
	var first error
	for task := range tasks {
		if err := w.run(task); err != nil {
			w.failed.Add(1)
			w.manager.Logger().Printf("[workpool] worker %d: %v", w.id, err)
			if first == nil {
				first = err
			}
		}
		w.completed.Add(1)
	}
	return first
}

// run executes task inside its own pool. Pools the task left open are closed
// innermost first and reported as a pool-order error. A panic is turned into
// an error after the pools have drained.
func (w *Worker) run(task Task) (err error) {
	name := fmt.Sprintf("worker %d task", w.id)
	pool := w.manager.NewPool(name)
	defer func() {
		r := recover()
		open := w.unwind(pool)
		switch r := r.(type) {
		case nil:
		case error:
			err = fmt.Errorf("worker %d: task panicked: %w", w.id, r)
			return
		default:
			err = fmt.Errorf("worker %d: task panicked: %v", w.id, r)
			return
		}
		if open > 0 && err == nil {
			err = &memory.LifetimeError{
				Op:     "workpool.Task",
				Kind:   memory.KindPoolOrder,
				Object: fmt.Sprintf("pool %q", name),
				Detail: fmt.Sprintf("task left %d pool(s) open", open),
			}
		}
	}()
	return task(w.manager)
}

// unwind closes every pool above pool, then pool itself, and returns how
// many were left open above it.
func (w *Worker) unwind(pool *memory.Pool) int {
	open := 0
	for w.manager.Depth() > pool.Depth()+1 {
		w.manager.Current().Close()
		open++
	}
	pool.Close()
	return open
}

// Dealloc closes the worker's manager, draining its bootstrap pool.
func (w *Worker) Dealloc() {
	w.manager.Close()
}
