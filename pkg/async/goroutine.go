// Package async provides panic-safe goroutine helpers and a bounded worker pool.
package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// SafeGo runs fn in a goroutine and recovers from panics, logging them
// instead of crashing the process. It is used for fire-and-forget work
// such as cache invalidation sweeps after a response has been sent.
func SafeGo(logger *observability.Logger, name string, fn func()) {
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithFields(map[string]interface{}{
					"goroutine": name,
					"panic":     rec,
					"stack":     string(debug.Stack()),
				}).Error("goroutine panic recovered")
			}
		}()
		fn()
	}()
}

// Task is a unit of work submitted to a WorkerPool
type Task func(ctx context.Context)

// WorkerPool runs submitted tasks on a fixed number of goroutines.
// Submissions after Stop are dropped.
type WorkerPool struct {
	tasks   chan Task
	wg      sync.WaitGroup
	logger  *observability.Logger
	cancel  context.CancelFunc
	stopped sync.Once
}

// NewWorkerPool starts a pool with the given number of workers and
// queue capacity.
func NewWorkerPool(workers, queueSize int, logger *observability.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		tasks:  make(chan Task, queueSize),
		logger: logger,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return p
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(ctx, task)
	}
}

func (p *WorkerPool) run(ctx context.Context, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.WithFields(map[string]interface{}{
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error("worker task panic recovered")
		}
	}()
	task(ctx)
}

// Submit enqueues a task, returning false if the queue is full or the
// pool has been stopped.
func (p *WorkerPool) Submit(task Task) bool {
	defer func() {
		// send on closed channel after Stop
		recover()
	}()
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for in-flight tasks to finish
func (p *WorkerPool) Stop() {
	p.stopped.Do(func() {
		close(p.tasks)
		p.wg.Wait()
		p.cancel()
	})
}
