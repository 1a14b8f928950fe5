// Package workerpool runs queued tasks on a fixed set of workers.
package workerpool

import (
	"errors"
	"runtime"
	"sync"
)

// ErrClosed is returned when a task is enqueued after shutdown has begun.
var ErrClosed = errors.New("worker pool is shut down")

const queueCapacity = 128

// Pool executes tasks on a fixed number of workers in submission order.
type Pool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// DefaultWorkers returns the default worker count, half of the available
// CPUs with a minimum of one.
func DefaultWorkers() int {
	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	return workers
}

// New creates a pool with the given number of workers, worker counts below
// one are raised to one.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}

	pool := &Pool{
		tasks: make(chan func(), queueCapacity),
	}

	pool.wg.Add(workers)
	for range workers {
		go pool.worker()
	}
	return pool
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for task := range p.tasks {
		task()
	}
}

// Enqueue submits a task for execution. It blocks while the queue is full
// and fails once Shutdown has been called.
func (p *Pool) Enqueue(task func()) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.tasks <- task
	return nil
}

// Shutdown stops task intake, waits for all queued tasks to finish and
// joins the workers. It is safe to call multiple times.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
