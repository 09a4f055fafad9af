package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Engine is the single-writer task loop.
//
// Thread-safety model:
//   - Do(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine, idempotent
type Engine struct {
	counters Counters
	queue    *jobQueue
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for task tracing. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an idle Engine. Call Run to start processing.
func New(opts ...Option) *Engine {
	e := &Engine{
		queue:  newJobQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type taskKey struct{}

// inTask reports whether ctx belongs to a task running on e.
func (e *Engine) inTask(ctx context.Context) bool {
	owner, _ := ctx.Value(taskKey{}).(*Engine)
	return owner == e
}

// Do runs fn on the engine goroutine and returns its error.
//
// If ctx is cancelled before the task starts, the task is skipped and
// ctx.Err() is returned. Once started, a task runs to completion; the
// caller may stop waiting but the result is still produced.
//
// Called from inside a running task, Do executes fn inline.
func (e *Engine) Do(ctx context.Context, name string, fn Task) error {
	if e.inTask(ctx) {
		return fn(ctx)
	}

	j := &job{
		name: name,
		seq:  e.counters.next(),
		ctx:  ctx,
		fn:   fn,
		done: make(chan error, 1),
	}
	if !e.queue.Enqueue(j) {
		return fmt.Errorf("%s: %w", name, ErrStopped)
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the task loop.
// Blocks until ctx is cancelled or Stop() is called. After Stop, tasks
// already queued are still executed before Run returns.
//
// CRITICAL: Must be called from exactly ONE goroutine.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Debug("engine starting")

	for {
		if ctx.Err() != nil {
			return e.abort(ctx)
		}

		if j, ok := e.queue.TryDequeue(); ok {
			e.execute(j)
			continue
		}

		select {
		case <-ctx.Done():
			return e.abort(ctx)

		case <-e.queue.Wait():
			// The signal channel closes when the queue is closed,
			// which makes this case fire immediately.
			if e.queue.Len() == 0 && e.closed() {
				e.logger.Debug("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once queued tasks are finished.
func (e *Engine) Stop() {
	e.queue.Close()
}

// Stats returns task counts since New.
func (e *Engine) Stats() Stats {
	return e.counters.Snapshot()
}

// QueueLen returns the number of tasks waiting to run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

func (e *Engine) closed() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// execute runs one job and delivers its result.
// CRITICAL: Called only from Run() goroutine.
func (e *Engine) execute(j *job) {
	if err := j.ctx.Err(); err != nil {
		e.logger.Debug("task skipped", "task", j.name, "seq", j.seq, "error", err)
		e.counters.record(err, true)
		j.done <- err
		return
	}

	start := time.Now()
	err := j.fn(context.WithValue(j.ctx, taskKey{}, e))
	e.counters.record(err, false)

	if err != nil {
		e.logger.Debug("task failed",
			"task", j.name,
			"seq", j.seq,
			"duration", time.Since(start),
			"error", err,
		)
	} else {
		e.logger.Debug("task done",
			"task", j.name,
			"seq", j.seq,
			"duration", time.Since(start),
		)
	}
	j.done <- err
}

// abort closes the queue and resolves every queued job with ErrStopped.
func (e *Engine) abort(ctx context.Context) error {
	e.logger.Debug("engine stopping: context cancelled")
	e.queue.Close()
	for _, j := range e.queue.Drain() {
		j.done <- fmt.Errorf("%s: %w", j.name, ErrStopped)
	}
	return ctx.Err()
}
