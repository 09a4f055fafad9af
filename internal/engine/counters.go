package engine

import "sync/atomic"

// Counters tracks the tasks an Engine has seen. Safe for concurrent use.
type Counters struct {
	submitted atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
}

// Stats is a point-in-time copy of Counters.
type Stats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
	Skipped   int64
}

// next records a submission and returns its seq number, starting at 1.
func (c *Counters) next() int64 {
	return c.submitted.Add(1)
}

// record counts the outcome of a task that reached the loop. skipped marks
// tasks whose context was done before they started.
func (c *Counters) record(err error, skipped bool) {
	switch {
	case skipped:
		c.skipped.Add(1)
	case err != nil:
		c.failed.Add(1)
	default:
		c.succeeded.Add(1)
	}
}

// Snapshot returns the current counts.
func (c *Counters) Snapshot() Stats {
	return Stats{
		Submitted: c.submitted.Load(),
		Succeeded: c.succeeded.Load(),
		Failed:    c.failed.Load(),
		Skipped:   c.skipped.Load(),
	}
}

// Done reports how many submitted tasks have finished running or were
// skipped. Tasks drained on abort are not counted.
func (s Stats) Done() int64 {
	return s.Succeeded + s.Failed + s.Skipped
}
