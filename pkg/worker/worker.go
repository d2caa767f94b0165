// Package worker provides a bounded fan-out pool with a fixed number
// of goroutines.
package worker

import "sync"

// Handler processes one job. workerIndex identifies the goroutine for
// logging.
type Handler[T any] func(workerIndex int, job T)

// Pool fans jobs from a bounded channel out to a fixed set of
// goroutines. The pool owns the channel; a Shutdown abandons jobs
// still buffered, so producers needing delivery guarantees must hold
// them elsewhere (the dispatch queue keeps messages pending until they
// are acked).
type Pool[T any] struct {
	jobs     chan T
	workers  int
	handler  Handler[T]
	quit     chan struct{}
	quitOnce sync.Once
	wg       sync.WaitGroup
}

func NewPool[T any](workers, buffer int, handler Handler[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	return &Pool[T]{
		jobs:    make(chan T, buffer),
		workers: workers,
		handler: handler,
		quit:    make(chan struct{}),
	}
}

// Run spins up the workers and blocks until Shutdown is called.
func (p *Pool[T]) Run() {
	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		go func(index int) {
			defer p.wg.Done()
			for {
				select {
				case job := <-p.jobs:
					p.handler(index, job)
				case <-p.quit:
					return
				}
			}
		}(i)
	}
	p.wg.Wait()
}

// Submit hands a job to the pool. Blocks while the buffer is full.
func (p *Pool[T]) Submit(job T) {
	p.jobs <- job
}

// Backlog reports how many submitted jobs no worker has picked up yet.
func (p *Pool[T]) Backlog() int {
	return len(p.jobs)
}

// Shutdown stops every worker. Safe to call more than once.
func (p *Pool[T]) Shutdown() {
	p.quitOnce.Do(func() { close(p.quit) })
}
