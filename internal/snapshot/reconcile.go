package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/electromanage/internal/checkout"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/settings"
	"github.com/roach88/electromanage/internal/store"
)

// Reconcile re-applies local transactions dated after since to the current
// component stock. A sale never takes stock below zero; every shortfall is
// appended to the review queue. Transactions themselves are not modified.
//
// Inbound stock is already non-negative: Parse rejects anything else.
//
// Run it on the same Executor that just replaced the components.
func Reconcile(ctx context.Context, ex store.Executor, since time.Time, clock model.Clock) ([]model.ReviewItem, error) {
	components, err := inventory.Table.All(ctx, ex)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	txs, err := checkout.Since(ctx, ex, since)
	if err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}

	now := clock.Now()
	byID := make(map[string]int, len(components))
	changed := make(map[int]bool)
	flagged := []model.ReviewItem{}

	for i := range components {
		byID[components[i].ID] = i
	}

	for _, tx := range txs {
		for _, line := range tx.Lines {
			i, ok := byID[line.ComponentID]
			if !ok {
				flagged = append(flagged, model.ReviewItem{
					TransactionID: tx.ID,
					ComponentID:   line.ComponentID,
					Requested:     line.Quantity,
					FlaggedAt:     now,
				})
				continue
			}

			c := &components[i]
			applied := min(line.Quantity, c.Stock)
			c.Stock -= applied
			changed[i] = true

			if applied < line.Quantity {
				flagged = append(flagged, model.ReviewItem{
					TransactionID: tx.ID,
					ComponentID:   c.ID,
					Requested:     line.Quantity,
					Applied:       applied,
					FlaggedAt:     now,
				})
			}
		}
	}

	for i := range components {
		if !changed[i] {
			continue
		}
		components[i].UpdatedAt = now
		if _, err := inventory.Table.Put(ctx, ex, components[i]); err != nil {
			return nil, fmt.Errorf("reconcile %q: %w", components[i].Name, err)
		}
	}

	if len(flagged) > 0 {
		if err := settings.New(ex, clock, nil).AppendReview(ctx, flagged...); err != nil {
			return nil, fmt.Errorf("reconcile: %w", err)
		}
	}
	return flagged, nil
}
