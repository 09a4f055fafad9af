package snapshot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/electromanage/internal/cart"
	"github.com/roach88/electromanage/internal/checkout"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/settings"
	"github.com/roach88/electromanage/internal/store"
)

// Report describes what Apply changed.
type Report struct {
	Components   int                `json:"components"`
	CartLines    int                `json:"cartLines"`
	Settings     int                `json:"settings"`
	Transactions int                `json:"transactions"`
	Replaced     []store.Collection `json:"replaced"`
	Flagged      []model.ReviewItem `json:"flagged,omitempty"`
}

// Capture reads the store into a Document.
func Capture(ctx context.Context, ex store.Executor, scope Scope) (Document, error) {
	var doc Document
	var err error

	if doc.Components, err = inventory.Table.All(ctx, ex); err != nil {
		return Document{}, fmt.Errorf("capture components: %w", err)
	}
	if doc.Cart, err = cart.Table.All(ctx, ex); err != nil {
		return Document{}, fmt.Errorf("capture cart: %w", err)
	}

	all, err := settings.New(ex, model.SystemClock{}, nil).All(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("capture settings: %w", err)
	}

	switch scope {
	case ScopeRemote:
		doc.Settings = Settings{}
		for _, key := range RemoteSettings {
			if v, ok := all[key]; ok {
				doc.Settings[key] = v
			}
		}
	default:
		doc.Settings = Settings(all)
		if doc.Transactions, err = checkout.History(ctx, ex); err != nil {
			return Document{}, fmt.Errorf("capture transactions: %w", err)
		}
	}

	return doc, nil
}

// Apply writes doc into st in one transaction. Present collections are
// replaced wholesale, absent ones are left untouched, settings merge per
// key. On error nothing is written.
func Apply(ctx context.Context, st *store.Store, doc Document, clock model.Clock) (Report, error) {
	var report Report
	err := st.InTx(ctx, func(tx *store.Tx) error {
		var err error
		report, err = apply(ctx, tx, doc, clock)
		return err
	})
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// ApplyInbound applies a remote snapshot and, when it carries components,
// reconciles local transactions dated after since. Both steps share one
// transaction.
func ApplyInbound(ctx context.Context, st *store.Store, doc Document, since time.Time, clock model.Clock, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var report Report
	err := st.InTx(ctx, func(tx *store.Tx) error {
		var err error
		report, err = apply(ctx, tx, doc, clock)
		if err != nil {
			return err
		}
		if doc.Components == nil {
			return nil
		}
		report.Flagged, err = Reconcile(ctx, tx, since, clock)
		return err
	})
	if err != nil {
		return Report{}, err
	}

	if len(report.Flagged) > 0 {
		logger.Warn("inbound snapshot conflicted with local orders",
			"flagged", len(report.Flagged),
			"origin", doc.Origin,
		)
	}
	return report, nil
}

func apply(ctx context.Context, ex store.Executor, doc Document, clock model.Clock) (Report, error) {
	report := Report{Replaced: []store.Collection{}}

	if doc.Components != nil {
		if err := inventory.Table.Replace(ctx, ex, doc.Components); err != nil {
			return Report{}, err
		}
		report.Components = len(doc.Components)
		report.Replaced = append(report.Replaced, store.Components)
	}

	if doc.Cart != nil {
		if err := cart.Table.Replace(ctx, ex, doc.Cart); err != nil {
			return Report{}, err
		}
		report.CartLines = len(doc.Cart)
		report.Replaced = append(report.Replaced, store.Cart)
	}

	if doc.Transactions != nil {
		if err := checkout.Table.Replace(ctx, ex, doc.Transactions); err != nil {
			return Report{}, err
		}
		report.Transactions = len(doc.Transactions)
		report.Replaced = append(report.Replaced, store.Transactions)
	}

	now := clock.Now()
	for _, key := range settings.Keys(doc.Settings) {
		st := model.Setting{Key: key, Value: doc.Settings[key], UpdatedAt: now}
		if _, err := settings.Table.Put(ctx, ex, st); err != nil {
			return Report{}, err
		}
		report.Settings++
	}

	return report, nil
}
