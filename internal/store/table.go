package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// Table is a typed view over a collection. Records are stored as JSON.
//
// Example:
//
//	components := store.NewTable(store.Components,
//	    func(c *model.Component) string { return c.ID },
//	    func(c *model.Component) string { return c.Category },
//	)
//	c, err := components.Get(ctx, st, id)
type Table[T any] struct {
	coll  Collection
	key   func(*T) string
	index func(*T) string
}

// NewTable creates a typed view. index may be nil for collections without
// a secondary index.
func NewTable[T any](c Collection, key func(*T) string, index func(*T) string) Table[T] {
	return Table[T]{coll: c, key: key, index: index}
}

// Collection returns the underlying collection name.
func (t Table[T]) Collection() Collection {
	return t.coll
}

// Get decodes the record stored under key. Returns ErrNotFound if absent.
func (t Table[T]) Get(ctx context.Context, ex Executor, key string) (T, error) {
	var v T
	rec, err := ex.Get(ctx, t.coll, key)
	if err != nil {
		return v, err
	}
	return t.decode(rec)
}

// All decodes every record in insertion order.
func (t Table[T]) All(ctx context.Context, ex Executor) ([]T, error) {
	recs, err := ex.GetAll(ctx, t.coll)
	if err != nil {
		return nil, err
	}
	return t.decodeAll(recs)
}

// ByIndex decodes every record whose index equals value.
func (t Table[T]) ByIndex(ctx context.Context, ex Executor, value string) ([]T, error) {
	recs, err := ex.GetByIndex(ctx, t.coll, value)
	if err != nil {
		return nil, err
	}
	return t.decodeAll(recs)
}

// AllIndexed decodes every record sorted by index value.
func (t Table[T]) AllIndexed(ctx context.Context, ex Executor) ([]T, error) {
	recs, err := ex.GetAllIndexed(ctx, t.coll)
	if err != nil {
		return nil, err
	}
	return t.decodeAll(recs)
}

// Add inserts v. Returns ErrDuplicateKey if its key already exists.
func (t Table[T]) Add(ctx context.Context, ex Executor, v T) (string, error) {
	rec, err := t.encode(&v)
	if err != nil {
		return "", err
	}
	return ex.Add(ctx, t.coll, rec)
}

// Put inserts or replaces v.
func (t Table[T]) Put(ctx context.Context, ex Executor, v T) (string, error) {
	rec, err := t.encode(&v)
	if err != nil {
		return "", err
	}
	return ex.Update(ctx, t.coll, rec)
}

// Delete removes the record stored under key. Missing keys are ignored.
func (t Table[T]) Delete(ctx context.Context, ex Executor, key string) error {
	return ex.Delete(ctx, t.coll, key)
}

// Replace clears the collection and inserts vs in order. Use inside InTx
// so that a failure leaves the previous contents in place.
func (t Table[T]) Replace(ctx context.Context, ex Executor, vs []T) error {
	if err := ex.Clear(ctx, t.coll); err != nil {
		return err
	}
	for i := range vs {
		if _, err := t.Add(ctx, ex, vs[i]); err != nil {
			return fmt.Errorf("replace %s: %w", t.coll, err)
		}
	}
	return nil
}

func (t Table[T]) encode(v *T) (Record, error) {
	doc, err := json.Marshal(v)
	if err != nil {
		return Record{}, fmt.Errorf("encode %s: %w", t.coll, err)
	}
	rec := Record{Key: t.key(v), Doc: doc}
	if t.index != nil {
		rec.Index = t.index(v)
	}
	return rec, nil
}

func (t Table[T]) decode(rec Record) (T, error) {
	var v T
	if err := json.Unmarshal(rec.Doc, &v); err != nil {
		return v, fmt.Errorf("decode %s %q: %w", t.coll, rec.Key, err)
	}
	return v, nil
}

func (t Table[T]) decodeAll(recs []Record) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := t.decode(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
