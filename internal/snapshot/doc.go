// Package snapshot moves whole-store state in and out of JSON documents.
//
// The same Document shape serves backup files (export/import) and the
// remote sync document. Application replaces each collection that is
// present in the document wholesale and leaves absent ones untouched;
// settings merge per key.
//
// # Reconciliation
//
// The remote copy is eventually consistent. When an inbound snapshot
// replaces local components, local transactions committed after the last
// successful push are re-applied on top of the inbound stock. Any stock
// that would go negative is clamped to zero and the affected transaction
// is appended to the review queue.
package snapshot
