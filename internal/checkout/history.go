package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
)

// dateIndexLayout is fixed-width so that index order equals time order.
const dateIndexLayout = "2006-01-02T15:04:05.000000000Z"

// Table is the typed view over the transactions collection, indexed by date.
var Table = store.NewTable(store.Transactions,
	func(t *model.Transaction) string { return t.ID },
	func(t *model.Transaction) string { return t.Date.UTC().Format(dateIndexLayout) },
)

// History returns every transaction, oldest first.
func History(ctx context.Context, ex store.Executor) ([]model.Transaction, error) {
	txs, err := Table.AllIndexed(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

// Since returns the transactions dated strictly after t, oldest first.
func Since(ctx context.Context, ex store.Executor, t time.Time) ([]model.Transaction, error) {
	all, err := History(ctx, ex)
	if err != nil {
		return nil, err
	}

	out := []model.Transaction{}
	for _, tx := range all {
		if tx.Date.After(t) {
			out = append(out, tx)
		}
	}
	return out, nil
}
