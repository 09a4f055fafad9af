// Package engine runs application mutations on a single writer goroutine.
//
// ARCHITECTURE:
//
// Single-Writer Task Loop:
// Every state-changing operation (inventory edits, cart changes, checkout,
// import, inbound sync) is submitted as a Task and executed one at a time,
// in submission order, by Engine.Run. This ensures:
// - Checkout's validate-then-commit cannot interleave with another mutation
// - Inbound snapshots never land halfway through a local operation
// - Simple reasoning about ordering in logs
//
// Task Processing Flow:
// 1. Do() enqueues a task on the FIFO queue and waits for its result
// 2. Run() dequeues tasks one at a time
// 3. The task runs with the caller's context
// 4. The result is handed back to the waiting caller
//
// A task that calls Do on the same engine runs inline instead of being
// queued, so services can compose without deadlocking the loop.
//
// Every queued task is stamped with a monotonic seq number. Stats reports
// task outcomes.
package engine
