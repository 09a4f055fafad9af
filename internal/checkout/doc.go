// Package checkout commits the cart into stock decrements and an order record.
//
// Checkout runs a small state machine:
//
//	Validating -> Committing -> Committed
//	Validating -> Aborted
//	Committing -> Aborted   (after compensating the applied decrements)
//
// Validation re-reads every component and mutates nothing. Commit applies
// one AdjustStock per line and then records the Transaction. With the
// Transactional option all of it runs in one storage transaction and a
// failure discards it. Without it each write commits on its own, and a
// failure reverses the decrements already applied in reverse order. Either
// way CheckoutFailed is returned.
// The state is reported on the Result and logged; it is never persisted.
//
// Atomicity holds within one process because callers run Checkout as a
// single engine task. Across devices the remote is eventually consistent;
// see package snapshot for reconciliation.
package checkout
