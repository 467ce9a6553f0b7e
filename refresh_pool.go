package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	errRefreshPoolClosed = errors.New("memo: refresh pool is shut down")
	errRefreshQueueFull  = errors.New("memo: refresh queue is full")
)

// refreshTask is a detached unit of background work. Run reports the outcome
// for accounting only; nobody waits on it. Drop runs instead of Run when the
// task is discarded before a worker picks it up.
type refreshTask struct {
	Key  string
	Run  func() error
	Drop func()
}

// RefreshStats reports background refresh pool activity.
type RefreshStats struct {
	Workers   int   `json:"workers"`
	Active    int64 `json:"active"`
	Pending   int   `json:"pending"`
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// refreshPool runs background refreshes on a fixed set of goroutines.
type refreshPool struct {
	workers int
	tasks   chan refreshTask
	wg      sync.WaitGroup

	active    atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	mu      sync.RWMutex
}

func newRefreshPool(workers, queue int) *refreshPool {
	if workers <= 0 {
		workers = 1
	}
	if queue <= 0 {
		queue = workers
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &refreshPool{
		workers: workers,
		tasks:   make(chan refreshTask, queue),
		ctx:     ctx,
		cancel:  cancel,
		running: true,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *refreshPool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case task := <-p.tasks:
			p.process(task)
		}
	}
}

func (p *refreshPool) process(task refreshTask) {
	p.active.Add(1)
	defer p.active.Add(-1)

	err := runRecovered(task.Run)
	if err != nil {
		p.failed.Add(1)
		return
	}
	p.completed.Add(1)
}

// runRecovered keeps a panicking refresh from taking the worker down.
func runRecovered(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("memo: panic in refresh: %v", r)
		}
	}()
	if fn == nil {
		return errors.New("memo: refresh task has no run function")
	}
	return fn()
}

// submit queues task without blocking.
func (p *refreshPool) submit(task refreshTask) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		p.dropped.Add(1)
		return errRefreshPoolClosed
	}
	select {
	case p.tasks <- task:
		p.submitted.Add(1)
		return nil
	default:
		p.dropped.Add(1)
		return errRefreshQueueFull
	}
}

// close stops the workers without waiting for running refreshes. Queued tasks
// are dropped.
func (p *refreshPool) close() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	p.mu.Unlock()

	for {
		select {
		case task := <-p.tasks:
			p.dropped.Add(1)
			if task.Drop != nil {
				task.Drop()
			}
		default:
			return
		}
	}
}

func (p *refreshPool) stats() RefreshStats {
	return RefreshStats{
		Workers:   p.workers,
		Active:    p.active.Load(),
		Pending:   len(p.tasks),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Dropped:   p.dropped.Load(),
	}
}
