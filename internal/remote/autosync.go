package remote

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is the quiet period AutoSyncer waits for before pushing.
const DefaultDebounce = 750 * time.Millisecond

// PushFunc publishes the current local state.
type PushFunc func(ctx context.Context) error

// AutoSyncer coalesces change notifications into trailing-edge pushes: a
// burst of Notify calls yields one push once the burst has been quiet for
// the debounce period. Pushes never overlap, and a push in flight is not
// cancelled by later notifications.
type AutoSyncer struct {
	push   PushFunc
	delay  time.Duration
	logger *slog.Logger

	flight sync.Mutex

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
}

// NewAutoSyncer returns an AutoSyncer calling push. A non-positive delay
// uses DefaultDebounce.
func NewAutoSyncer(delay time.Duration, push PushFunc, logger *slog.Logger) *AutoSyncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoSyncer{push: push, delay: delay, logger: logger}
}

// Notify records a local change and restarts the quiet period.
func (a *AutoSyncer) Notify() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	a.pending = true
	if a.timer == nil {
		a.timer = time.AfterFunc(a.delay, a.fire)
		return
	}
	a.timer.Reset(a.delay)
}

// Pending reports whether a change is waiting to be pushed.
func (a *AutoSyncer) Pending() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Flush pushes now if a change is pending.
func (a *AutoSyncer) Flush(ctx context.Context) error {
	a.stopTimer()
	return a.flush(ctx)
}

// Close stops accepting notifications and flushes any pending change.
func (a *AutoSyncer) Close(ctx context.Context) error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	return a.Flush(ctx)
}

func (a *AutoSyncer) stopTimer() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
}

func (a *AutoSyncer) fire() {
	if err := a.flush(context.Background()); err != nil {
		a.logger.Warn("auto-sync push failed", "error", err)
	}
}

func (a *AutoSyncer) flush(ctx context.Context) error {
	a.flight.Lock()
	defer a.flight.Unlock()

	a.mu.Lock()
	if !a.pending {
		a.mu.Unlock()
		return nil
	}
	a.pending = false
	a.mu.Unlock()

	return a.push(ctx)
}
