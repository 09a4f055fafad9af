package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionLine is one committed cart line.
type TransactionLine struct {
	ComponentID string          `json:"componentId"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// Transaction is the order record written by a successful checkout.
// Transactions are never updated or deleted except by a full reset.
type Transaction struct {
	ID    string            `json:"id"`
	Lines []TransactionLine `json:"lines"`
	Total decimal.Decimal   `json:"total"`
	Date  time.Time         `json:"date"`
}

// Quantities returns the committed quantity per component id.
func (t Transaction) Quantities() map[string]int {
	out := make(map[string]int, len(t.Lines))
	for _, l := range t.Lines {
		out[l.ComponentID] += l.Quantity
	}
	return out
}
