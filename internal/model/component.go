package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of fractional digits kept for costs and prices.
const MoneyPlaces = 2

// Component is one inventory part.
//
// INVARIANT: Stock >= 0 once any operation has completed.
type Component struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Stock       int             `json:"stock"`
	Cost        decimal.Decimal `json:"cost"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Value returns stock × cost.
func (c Component) Value() decimal.Decimal {
	return c.Cost.Mul(decimal.NewFromInt(int64(c.Stock)))
}

// RoundMoney rounds d to MoneyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
