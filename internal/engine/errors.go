package engine

import "errors"

// ErrStopped is returned by Do when the engine no longer accepts tasks.
var ErrStopped = errors.New("engine stopped")
