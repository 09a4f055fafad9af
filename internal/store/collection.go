package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Collection names a keyed collection.
type Collection string

const (
	Components   Collection = "components"
	Cart         Collection = "cart"
	Settings     Collection = "settings"
	Transactions Collection = "transactions"
)

// Collections lists every collection in schema order.
var Collections = []Collection{Components, Cart, Settings, Transactions}

var (
	// ErrNotFound is returned by Get when no record has the key.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned by Add when the key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrUnknownCollection is returned for a collection outside Collections.
	ErrUnknownCollection = errors.New("unknown collection")
)

// Record is one stored document.
type Record struct {
	Key   string
	Index string
	Doc   []byte
}

// Executor is the generic collection contract. It is implemented by
// *Store (autocommit) and *Tx (inside InTx).
type Executor interface {
	Get(ctx context.Context, c Collection, key string) (Record, error)
	GetAll(ctx context.Context, c Collection) ([]Record, error)
	GetByIndex(ctx context.Context, c Collection, value string) ([]Record, error)
	GetAllIndexed(ctx context.Context, c Collection) ([]Record, error)
	Add(ctx context.Context, c Collection, rec Record) (string, error)
	Update(ctx context.Context, c Collection, rec Record) (string, error)
	Delete(ctx context.Context, c Collection, key string) error
	Clear(ctx context.Context, c Collection) error
	Count(ctx context.Context, c Collection) (int, error)
}

// Transactor opens transactions. It is implemented by *Store.
type Transactor interface {
	InTx(ctx context.Context, fn func(tx *Tx) error) error
}

// Atomically runs fn in one transaction when ex can open one. Otherwise
// (ex is already a *Tx, or a wrapper) fn runs directly on ex.
func Atomically(ctx context.Context, ex Executor, fn func(ex Executor) error) error {
	if t, ok := ex.(Transactor); ok {
		return t.InTx(ctx, func(tx *Tx) error { return fn(tx) })
	}
	return fn(ex)
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type querier struct {
	q dbtx
}

func table(c Collection) (string, error) {
	for _, known := range Collections {
		if c == known {
			return string(c), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, c)
}

// Get returns the record stored under key, or ErrNotFound.
func (x querier) Get(ctx context.Context, c Collection, key string) (Record, error) {
	t, err := table(c)
	if err != nil {
		return Record{}, err
	}

	var rec Record
	var doc string
	err = x.q.QueryRowContext(ctx,
		"SELECT key, idx, doc FROM "+t+" WHERE key = ?", key,
	).Scan(&rec.Key, &rec.Index, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get %s %q: %w", c, key, err)
	}
	rec.Doc = []byte(doc)
	return rec, nil
}

// GetAll returns every record in insertion order.
func (x querier) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	return x.list(ctx, c, "SELECT key, idx, doc FROM "+t+" ORDER BY rowid ASC")
}

// GetByIndex returns the records whose index equals value, in insertion order.
func (x querier) GetByIndex(ctx context.Context, c Collection, value string) ([]Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	return x.list(ctx, c, "SELECT key, idx, doc FROM "+t+" WHERE idx = ? ORDER BY rowid ASC", value)
}

// GetAllIndexed returns every record sorted by index value, then insertion order.
func (x querier) GetAllIndexed(ctx context.Context, c Collection) ([]Record, error) {
	t, err := table(c)
	if err != nil {
		return nil, err
	}
	return x.list(ctx, c, "SELECT key, idx, doc FROM "+t+" ORDER BY idx ASC, rowid ASC")
}

func (x querier) list(ctx context.Context, c Collection, query string, args ...any) ([]Record, error) {
	rows, err := x.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", c, err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var doc string
		if err := rows.Scan(&rec.Key, &rec.Index, &doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", c, err)
		}
		rec.Doc = []byte(doc)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", c, err)
	}
	return records, nil
}

// Add inserts rec. Returns ErrDuplicateKey if the key already exists.
func (x querier) Add(ctx context.Context, c Collection, rec Record) (string, error) {
	t, err := table(c)
	if err != nil {
		return "", err
	}
	if rec.Key == "" {
		return "", fmt.Errorf("add %s: empty key", c)
	}

	result, err := x.q.ExecContext(ctx,
		"INSERT INTO "+t+" (key, idx, doc) VALUES (?, ?, ?) ON CONFLICT(key) DO NOTHING",
		rec.Key, rec.Index, string(rec.Doc),
	)
	if err != nil {
		return "", fmt.Errorf("add %s %q: %w", c, rec.Key, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("add %s %q: rows affected: %w", c, rec.Key, err)
	}
	if n == 0 {
		return "", fmt.Errorf("add %s %q: %w", c, rec.Key, ErrDuplicateKey)
	}
	return rec.Key, nil
}

// Update inserts rec or replaces the record with the same key.
func (x querier) Update(ctx context.Context, c Collection, rec Record) (string, error) {
	t, err := table(c)
	if err != nil {
		return "", err
	}
	if rec.Key == "" {
		return "", fmt.Errorf("update %s: empty key", c)
	}

	_, err = x.q.ExecContext(ctx, `
		INSERT INTO `+t+` (key, idx, doc) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET idx = excluded.idx, doc = excluded.doc
	`, rec.Key, rec.Index, string(rec.Doc))
	if err != nil {
		return "", fmt.Errorf("update %s %q: %w", c, rec.Key, err)
	}
	return rec.Key, nil
}

// Delete removes the record with key. Deleting a missing key is a no-op.
func (x querier) Delete(ctx context.Context, c Collection, key string) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	if _, err := x.q.ExecContext(ctx, "DELETE FROM "+t+" WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s %q: %w", c, key, err)
	}
	return nil
}

// Clear removes every record of the collection.
func (x querier) Clear(ctx context.Context, c Collection) error {
	t, err := table(c)
	if err != nil {
		return err
	}
	if _, err := x.q.ExecContext(ctx, "DELETE FROM "+t); err != nil {
		return fmt.Errorf("clear %s: %w", c, err)
	}
	return nil
}

// Count returns the number of records in the collection.
func (x querier) Count(ctx context.Context, c Collection) (int, error) {
	t, err := table(c)
	if err != nil {
		return 0, err
	}
	var n int
	if err := x.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+t).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", c, err)
	}
	return n, nil
}
