package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/inventory"
)

// actionFunc performs one scenario action against a Session.
type actionFunc func(ctx context.Context, s *app.Session, a *args) (any, error)

var actions = map[string]actionFunc{
	"component.add": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		in := inventory.NewComponent{
			Name:        a.str("name"),
			Category:    a.str("category"),
			Stock:       a.integer("stock"),
			Cost:        a.decimal("cost"),
			Description: a.str("description"),
		}
		if err := a.err(); err != nil {
			return nil, err
		}
		return s.AddComponent(ctx, in)
	},
	"component.update": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id := a.str("id")
		var p inventory.Patch
		if a.has("name") {
			v := a.str("name")
			p.Name = &v
		}
		if a.has("category") {
			v := a.str("category")
			p.Category = &v
		}
		if a.has("stock") {
			v := a.integer("stock")
			p.Stock = &v
		}
		if a.has("cost") {
			v := a.decimal("cost")
			p.Cost = &v
		}
		if a.has("description") {
			v := a.str("description")
			p.Description = &v
		}
		if err := a.err(); err != nil {
			return nil, err
		}
		return s.UpdateComponent(ctx, id, p)
	},
	"component.adjust": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id, delta := a.str("id"), a.integer("delta")
		if err := a.err(); err != nil {
			return nil, err
		}
		return s.AdjustStock(ctx, id, delta)
	},
	"component.delete": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id := a.str("id")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, s.DeleteComponent(ctx, id)
	},
	"component.get": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id := a.str("id")
		if err := a.err(); err != nil {
			return nil, err
		}
		return s.Component(ctx, id)
	},
	"component.stats": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		return s.Stats(ctx)
	},
	"component.seed": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		n, err := s.Seed(ctx)
		return map[string]int{"added": n}, err
	},
	"cart.add": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id, qty := a.str("component"), a.integer("quantity")
		if err := a.err(); err != nil {
			return nil, err
		}
		return s.AddToCart(ctx, id, qty)
	},
	"cart.set": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id, qty := a.str("component"), a.integer("quantity")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, s.SetCartQuantity(ctx, id, qty)
	},
	"cart.remove": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		id := a.str("component")
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, s.RemoveFromCart(ctx, id)
	},
	"cart.clear": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		return nil, s.ClearCart(ctx)
	},
	"cart.show": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		return s.Cart(ctx)
	},
	"checkout": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		return s.Checkout(ctx)
	},
	"history": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		return s.History(ctx)
	},
	"settings.set": func(ctx context.Context, s *app.Session, a *args) (any, error) {
		key := a.str("key")
		raw, err := json.Marshal(a.m["value"])
		if err != nil {
			return nil, fmt.Errorf("value: %w", err)
		}
		if err := a.err(); err != nil {
			return nil, err
		}
		return nil, s.SetSetting(ctx, key, raw)
	},
	"review.list": func(ctx context.Context, s *app.Session, _ *args) (any, error) {
		return s.ReviewQueue(ctx)
	},
}

// args are the YAML arguments of a step. Accessors record conversion
// failures, reported by err.
type args struct {
	m    map[string]any
	errs []error
}

func newArgs(m map[string]any) *args {
	return &args{m: m}
}

func (a *args) fail(err error) {
	a.errs = append(a.errs, err)
}

func (a *args) err() error {
	return errors.Join(a.errs...)
}

func (a *args) has(key string) bool {
	_, ok := a.m[key]
	return ok
}

func (a *args) str(key string) string {
	switch v := a.m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (a *args) integer(key string) int {
	switch v := a.m[key].(type) {
	case nil:
		return 0
	case int:
		return v
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			a.fail(fmt.Errorf("%s: %w", key, err))
		}
		return n
	default:
		a.fail(fmt.Errorf("%s: expected an integer, got %T", key, v))
		return 0
	}
}

func (a *args) decimal(key string) decimal.Decimal {
	switch v := a.m[key].(type) {
	case nil:
		return decimal.Zero
	case int:
		return decimal.NewFromInt(int64(v))
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			a.fail(fmt.Errorf("%s: %w", key, err))
		}
		return d
	default:
		a.fail(fmt.Errorf("%s: expected a number, got %T", key, v))
		return decimal.Zero
	}
}
