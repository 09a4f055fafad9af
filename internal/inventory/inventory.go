package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
)

// Table is the typed view over the components collection, indexed by category.
var Table = store.NewTable(store.Components,
	func(c *model.Component) string { return c.ID },
	func(c *model.Component) string { return c.Category },
)

// NewComponent holds the caller-supplied fields of a component.
type NewComponent struct {
	Name        string
	Category    string
	Stock       int
	Cost        decimal.Decimal
	Description string
}

// Patch holds optional component changes. Nil fields are left untouched.
type Patch struct {
	Name        *string
	Category    *string
	Stock       *int
	Cost        *decimal.Decimal
	Description *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Stock == nil && p.Cost == nil && p.Description == nil
}

// Service reads and writes components.
type Service struct {
	ex     store.Executor
	ids    model.IDGenerator
	clock  model.Clock
	logger *slog.Logger
}

// New creates a Service over ex.
func New(ex store.Executor, ids model.IDGenerator, clock model.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ex: ex, ids: ids, clock: clock, logger: logger}
}

// With returns a copy of s that reads and writes through ex, typically a
// *store.Tx.
func (s *Service) With(ex store.Executor) *Service {
	c := *s
	c.ex = ex
	return &c
}

// AddComponent validates and stores a new component with a fresh id.
func (s *Service) AddComponent(ctx context.Context, in NewComponent) (model.Component, error) {
	name := clean(in.Name)
	category := clean(in.Category)

	if name == "" {
		return model.Component{}, model.Validation("component", "name is required")
	}
	if category == "" {
		return model.Component{}, model.Validation(name, "category is required")
	}
	if in.Stock < 0 {
		return model.Component{}, model.Validation(name, "stock must not be negative, got %d", in.Stock)
	}
	if in.Cost.IsNegative() {
		return model.Component{}, model.Validation(name, "cost must not be negative, got %s", in.Cost)
	}

	now := s.clock.Now()
	c := model.Component{
		ID:          s.ids.NewID(),
		Name:        name,
		Category:    category,
		Stock:       in.Stock,
		Cost:        model.RoundMoney(in.Cost),
		Description: strings.TrimSpace(in.Description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := Table.Add(ctx, s.ex, c); err != nil {
		return model.Component{}, fmt.Errorf("add component %q: %w", name, err)
	}

	s.logger.Debug("component added", "id", c.ID, "name", c.Name, "stock", c.Stock)
	return c, nil
}

// UpdateComponent merges p into the component and refreshes UpdatedAt.
func (s *Service) UpdateComponent(ctx context.Context, id string, p Patch) (model.Component, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return model.Component{}, err
	}

	if p.Name != nil {
		name := clean(*p.Name)
		if name == "" {
			return model.Component{}, model.Validation(c.Name, "name is required")
		}
		c.Name = name
	}
	if p.Category != nil {
		category := clean(*p.Category)
		if category == "" {
			return model.Component{}, model.Validation(c.Name, "category is required")
		}
		c.Category = category
	}
	if p.Stock != nil {
		if *p.Stock < 0 {
			return model.Component{}, model.Validation(c.Name, "stock must not be negative, got %d", *p.Stock)
		}
		c.Stock = *p.Stock
	}
	if p.Cost != nil {
		if p.Cost.IsNegative() {
			return model.Component{}, model.Validation(c.Name, "cost must not be negative, got %s", *p.Cost)
		}
		c.Cost = model.RoundMoney(*p.Cost)
	}
	if p.Description != nil {
		c.Description = strings.TrimSpace(*p.Description)
	}

	c.UpdatedAt = s.clock.Now()
	if _, err := Table.Put(ctx, s.ex, c); err != nil {
		return model.Component{}, fmt.Errorf("update component %q: %w", c.Name, err)
	}

	s.logger.Debug("component updated", "id", c.ID, "name", c.Name)
	return c, nil
}

// AdjustStock adds delta to the component's stock.
// Returns InsufficientStock if the result would be negative.
func (s *Service) AdjustStock(ctx context.Context, id string, delta int) (model.Component, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return model.Component{}, err
	}

	if c.Stock+delta < 0 {
		return model.Component{}, model.InsufficientStock(c.Name, -delta, c.Stock)
	}

	c.Stock += delta
	c.UpdatedAt = s.clock.Now()
	if _, err := Table.Put(ctx, s.ex, c); err != nil {
		return model.Component{}, fmt.Errorf("adjust stock %q: %w", c.Name, err)
	}

	s.logger.Debug("stock adjusted", "id", c.ID, "delta", delta, "stock", c.Stock)
	return c, nil
}

// DeleteComponent removes the component and its cart line.
func (s *Service) DeleteComponent(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.ex.Delete(ctx, store.Cart, id); err != nil {
		return fmt.Errorf("delete cart line %q: %w", c.Name, err)
	}
	if err := Table.Delete(ctx, s.ex, id); err != nil {
		return fmt.Errorf("delete component %q: %w", c.Name, err)
	}

	s.logger.Debug("component deleted", "id", id, "name", c.Name)
	return nil
}

// Get returns the component with id, or a NotFound error.
func (s *Service) Get(ctx context.Context, id string) (model.Component, error) {
	c, err := Table.Get(ctx, s.ex, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Component{}, model.NotFound(id, "component not found")
	}
	if err != nil {
		return model.Component{}, fmt.Errorf("get component %q: %w", id, err)
	}
	return c, nil
}

// ListAll returns every component in insertion order.
func (s *Service) ListAll(ctx context.Context) ([]model.Component, error) {
	cs, err := Table.All(ctx, s.ex)
	if err != nil {
		return nil, fmt.Errorf("list components: %w", err)
	}
	return cs, nil
}

// ListByCategory returns the components whose category equals category exactly.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]model.Component, error) {
	cs, err := Table.ByIndex(ctx, s.ex, clean(category))
	if err != nil {
		return nil, fmt.Errorf("list category %q: %w", category, err)
	}
	return cs, nil
}

// clean trims surrounding space and normalises to NFC so that visually
// identical names compare equal.
func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
