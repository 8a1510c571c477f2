// Package worker provides a bounded goroutine pool for fanning out profile
// operations (bulk provisioning, parallel session launches) with controlled
// concurrency.
package worker

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolStopped is returned by Submit after Stop has been called.
var ErrPoolStopped = errors.New("worker: pool stopped")

// Pool manages a fixed number of goroutines that drain a shared job queue.
//
// Design choices:
//   - workerCount goroutines are started once and reused, avoiding the cost
//     of spawning a goroutine per job.
//   - jobQueue is a buffered channel (capacity workerCount*4): workers can
//     pick up the next job immediately after finishing the current one.
//     Submit blocks only when the buffer is full, applying natural
//     back-pressure to producers, and honours context cancellation while
//     blocked so a shutdown never hangs on a full queue.
//   - Stop closes the channel and waits (via wg) for every in-flight job to
//     finish before returning, preventing goroutine leaks.  Browser launches
//     are slow jobs, so the wait can be tens of seconds; callers bound the
//     jobs themselves with contexts.
//   - Submit holds mu in read mode for the whole send and Stop takes it in
//     write mode before closing the queue, so a Submit parked on a full
//     buffer can never send on a closed channel: Stop waits until every
//     in-flight Submit has either enqueued or given up on its context.
type Pool struct {
	workerCount int
	jobQueue    chan func()
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewPool creates a Pool with workerCount goroutines ready to receive jobs.
func NewPool(workerCount int) *Pool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &Pool{
		workerCount: workerCount,
		jobQueue:    make(chan func(), workerCount*4),
	}
}

// Start launches the worker goroutines.  It must be called exactly once
// before any jobs are submitted.
func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobQueue {
				job()
			}
		}()
	}
}

// Submit enqueues job for execution by one of the pool's goroutines.  It
// blocks while the internal buffer is full; ctx cancellation aborts the wait.
func (p *Pool) Submit(ctx context.Context, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.jobQueue <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop signals the pool to finish all queued jobs and then waits for every
// worker goroutine to exit.  No new jobs may be submitted after Stop; a
// Submit blocked on a full buffer when Stop is called completes first, since
// the queue is only closed once the write lock is held.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	p.wg.Wait()
}
