// Package inventory is the repository for electronics components.
//
// AdjustStock is the only path that lowers stock and the only place that
// enforces stock >= 0 for deltas. AddComponent and UpdateComponent reject
// negative stock and cost up front.
package inventory
