// Package store provides SQLite-backed durable storage for electromanage.
//
// The store holds four keyed collections:
//   - components: inventory parts, secondary index on category
//   - cart: reservation lines, secondary index on component id
//   - settings: key/value pairs
//   - transactions: order records, secondary index on date
//
// Every collection is a table of (key, idx, doc) where doc is the JSON
// encoding of the record. Table[T] gives a typed view over a collection.
//
// # Durability
//
// Every successful Add, Update, Delete or Clear is committed before the
// call returns. There are no buffered writes. Multi-collection writes that
// must land together go through InTx.
//
// # Ordering
//
// GetAll and GetByIndex return records in insertion order (rowid).
// GetAllIndexed orders by the index column first. Upserts keep the
// original rowid, so updating a record does not move it.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: A write survives power loss once it returns
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - One open connection: the process has a single writer
package store
