package engine

import (
	"context"
	"sync"
)

// Task is a unit of work executed on the engine goroutine.
type Task func(ctx context.Context) error

// job is a queued task plus the channel its result is delivered on.
type job struct {
	name string
	seq  int64
	ctx  context.Context
	fn   Task
	done chan error // buffered, size 1
}

// jobQueue is a thread-safe FIFO queue for jobs.
//
// The queue is unbounded. Do() blocks its caller on the job's done channel,
// not on the queue, so callers never wait on each other to enqueue.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type jobQueue struct {
	mu     sync.Mutex
	jobs   []*job
	closed bool
	signal chan struct{} // Signals job availability (buffered, size 1)
}

func newJobQueue() *jobQueue {
	return &jobQueue{
		jobs:   make([]*job, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a job to the back of the queue.
// Returns false if the queue is closed.
func (q *jobQueue) Enqueue(j *job) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.jobs = append(q.jobs, j)

	// Non-blocking: buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes and returns the front job without blocking.
func (q *jobQueue) TryDequeue() (*job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return nil, false
	}

	j := q.jobs[0]
	q.jobs[0] = nil // release for GC

	if len(q.jobs) == 1 {
		q.jobs = q.jobs[:0]
	} else {
		q.jobs = q.jobs[1:]
	}

	return j, true
}

// Wait returns a channel that signals when jobs may be available.
// The channel is closed once the queue is closed.
func (q *jobQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *jobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

// Close stops accepting jobs and wakes any waiter.
func (q *jobQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

// Drain removes and returns every queued job.
func (q *jobQueue) Drain() []*job {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.jobs
	q.jobs = nil
	return out
}
