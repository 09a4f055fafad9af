// Package cart reserves component stock ahead of checkout.
//
// A reservation is checked against live stock when it is made, but stock is
// not decremented until checkout commits. Other sessions can therefore
// drain stock under a reservation; checkout re-validates every line.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
)

// Table is the typed view over the cart collection, indexed by component id.
var Table = store.NewTable(store.Cart,
	func(l *model.CartLine) string { return l.ID },
	func(l *model.CartLine) string { return l.ComponentID },
)

// ComponentReader looks up live component state.
type ComponentReader interface {
	Get(ctx context.Context, id string) (model.Component, error)
}

// Totals summarises the cart.
type Totals struct {
	Items int             `json:"items"`
	Lines int             `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

// Service manages cart lines.
type Service struct {
	ex         store.Executor
	components ComponentReader
	clock      model.Clock
	logger     *slog.Logger
}

// New creates a cart Service.
func New(ex store.Executor, components ComponentReader, clock model.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ex: ex, components: components, clock: clock, logger: logger}
}

// Add reserves qty more units of a component.
//
// A new line snapshots the component's cost as its price. An existing line
// keeps its price and grows by qty. Either way the resulting quantity must
// not exceed live stock.
func (s *Service) Add(ctx context.Context, componentID string, qty int) (model.CartLine, error) {
	if qty < 1 {
		return model.CartLine{}, model.Validation(componentID, "quantity must be at least 1, got %d", qty)
	}

	c, err := s.components.Get(ctx, componentID)
	if err != nil {
		return model.CartLine{}, err
	}

	line, err := s.line(ctx, componentID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if qty > c.Stock {
			return model.CartLine{}, model.InsufficientStock(c.Name, qty, c.Stock)
		}
		line = model.CartLine{
			ID:          c.ID,
			ComponentID: c.ID,
			Name:        c.Name,
			Price:       c.Cost,
			Quantity:    qty,
			MaxQuantity: c.Stock,
			AddedAt:     s.clock.Now(),
		}
	case err != nil:
		return model.CartLine{}, err
	default:
		if line.Quantity+qty > c.Stock {
			return model.CartLine{}, model.InsufficientStock(c.Name, line.Quantity+qty, c.Stock)
		}
		line.Quantity += qty
		line.MaxQuantity = c.Stock
	}

	if _, err := Table.Put(ctx, s.ex, line); err != nil {
		return model.CartLine{}, fmt.Errorf("save cart line %q: %w", c.Name, err)
	}

	s.logger.Debug("cart line reserved", "component", c.ID, "quantity", line.Quantity, "stock", c.Stock)
	return line, nil
}

// SetQuantity replaces a line's quantity. A quantity of zero or less
// removes the line. Exceeding live stock leaves the line untouched.
func (s *Service) SetQuantity(ctx context.Context, componentID string, qty int) error {
	line, err := s.line(ctx, componentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.NotFound(componentID, "no cart line for component")
	}
	if err != nil {
		return err
	}

	if qty <= 0 {
		return s.Remove(ctx, componentID)
	}

	c, err := s.components.Get(ctx, componentID)
	if err != nil {
		return err
	}
	if qty > c.Stock {
		return model.InsufficientStock(c.Name, qty, c.Stock)
	}

	line.Quantity = qty
	line.MaxQuantity = c.Stock
	if _, err := Table.Put(ctx, s.ex, line); err != nil {
		return fmt.Errorf("save cart line %q: %w", c.Name, err)
	}

	s.logger.Debug("cart quantity set", "component", c.ID, "quantity", qty)
	return nil
}

// Remove drops the line for componentID. Missing lines are ignored.
func (s *Service) Remove(ctx context.Context, componentID string) error {
	if err := Table.Delete(ctx, s.ex, componentID); err != nil {
		return fmt.Errorf("remove cart line %q: %w", componentID, err)
	}
	return nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.ex.Clear(ctx, store.Cart); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// Lines returns every cart line in the order it was first added.
func (s *Service) Lines(ctx context.Context) ([]model.CartLine, error) {
	lines, err := Table.All(ctx, s.ex)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	return lines, nil
}

// Totals returns item count, line count and the price total.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	lines, err := s.Lines(ctx)
	if err != nil {
		return Totals{}, err
	}
	return Sum(lines), nil
}

// Sum computes Totals for lines.
func Sum(lines []model.CartLine) Totals {
	t := Totals{Lines: len(lines), Total: decimal.Zero}
	for _, l := range lines {
		t.Items += l.Quantity
		t.Total = t.Total.Add(l.Subtotal())
	}
	t.Total = model.RoundMoney(t.Total)
	return t
}

func (s *Service) line(ctx context.Context, componentID string) (model.CartLine, error) {
	line, err := Table.Get(ctx, s.ex, componentID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.CartLine{}, fmt.Errorf("get cart line %q: %w", componentID, err)
	}
	return line, err
}
