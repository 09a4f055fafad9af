package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartLine reserves Quantity units of a component.
//
// ID always equals ComponentID, so a cart holds at most one line per
// component. Price is snapshotted when the line is created and is never
// re-read from the component afterwards.
//
// INVARIANT: 1 <= Quantity <= MaxQuantity for every persisted line.
type CartLine struct {
	ID          string          `json:"id"`
	ComponentID string          `json:"componentId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	MaxQuantity int             `json:"maxQuantity"`
	AddedAt     time.Time       `json:"addedAt"`
}

// Subtotal returns price × quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
