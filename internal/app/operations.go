package app

import (
	"context"
	"encoding/json"
	"io"

	"github.com/roach88/electromanage/internal/cart"
	"github.com/roach88/electromanage/internal/checkout"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/snapshot"
	"github.com/roach88/electromanage/internal/store"
)

type none = struct{}

// Components

func (s *Session) AddComponent(ctx context.Context, in inventory.NewComponent) (model.Component, error) {
	return mutate(ctx, s, "component.add", func(ctx context.Context) (model.Component, error) {
		return s.inventory.AddComponent(ctx, in)
	})
}

func (s *Session) UpdateComponent(ctx context.Context, id string, p inventory.Patch) (model.Component, error) {
	return mutate(ctx, s, "component.update", func(ctx context.Context) (model.Component, error) {
		return s.inventory.UpdateComponent(ctx, id, p)
	})
}

func (s *Session) AdjustStock(ctx context.Context, id string, delta int) (model.Component, error) {
	return mutate(ctx, s, "component.adjust", func(ctx context.Context) (model.Component, error) {
		return s.inventory.AdjustStock(ctx, id, delta)
	})
}

func (s *Session) DeleteComponent(ctx context.Context, id string) error {
	_, err := mutate(ctx, s, "component.delete", func(ctx context.Context) (none, error) {
		return none{}, s.inventory.DeleteComponent(ctx, id)
	})
	return err
}

func (s *Session) Component(ctx context.Context, id string) (model.Component, error) {
	return view(ctx, s, "component.get", func(ctx context.Context) (model.Component, error) {
		return s.inventory.Get(ctx, id)
	})
}

// Components lists every component, or only those in category when it is
// not empty.
func (s *Session) Components(ctx context.Context, category string) ([]model.Component, error) {
	return view(ctx, s, "component.list", func(ctx context.Context) ([]model.Component, error) {
		if category != "" {
			return s.inventory.ListByCategory(ctx, category)
		}
		return s.inventory.ListAll(ctx)
	})
}

func (s *Session) Search(ctx context.Context, term string) ([]model.Component, error) {
	return view(ctx, s, "component.search", func(ctx context.Context) ([]model.Component, error) {
		return s.inventory.Search(ctx, term)
	})
}

func (s *Session) Categories(ctx context.Context) ([]inventory.CategorySummary, error) {
	return view(ctx, s, "component.categories", s.inventory.CategoryBreakdown)
}

// Stats computes inventory statistics using the lowStockThreshold setting.
func (s *Session) Stats(ctx context.Context) (inventory.Stats, error) {
	return view(ctx, s, "component.stats", func(ctx context.Context) (inventory.Stats, error) {
		threshold, err := s.settings.LowStockThreshold(ctx)
		if err != nil {
			return inventory.Stats{}, err
		}
		return s.inventory.ComputeStats(ctx, threshold)
	})
}

// Seed loads the demo components into an empty inventory.
func (s *Session) Seed(ctx context.Context) (int, error) {
	return mutate(ctx, s, "component.seed", s.inventory.Seed)
}

// Cart

// CartView is the cart with its totals.
type CartView struct {
	Lines    []model.CartLine `json:"lines"`
	Totals   cart.Totals      `json:"totals"`
	Currency string           `json:"currency"`
}

func (s *Session) AddToCart(ctx context.Context, componentID string, qty int) (model.CartLine, error) {
	return mutate(ctx, s, "cart.add", func(ctx context.Context) (model.CartLine, error) {
		return s.cart.Add(ctx, componentID, qty)
	})
}

func (s *Session) SetCartQuantity(ctx context.Context, componentID string, qty int) error {
	_, err := mutate(ctx, s, "cart.set", func(ctx context.Context) (none, error) {
		return none{}, s.cart.SetQuantity(ctx, componentID, qty)
	})
	return err
}

func (s *Session) RemoveFromCart(ctx context.Context, componentID string) error {
	_, err := mutate(ctx, s, "cart.remove", func(ctx context.Context) (none, error) {
		return none{}, s.cart.Remove(ctx, componentID)
	})
	return err
}

func (s *Session) ClearCart(ctx context.Context) error {
	_, err := mutate(ctx, s, "cart.clear", func(ctx context.Context) (none, error) {
		return none{}, s.cart.Clear(ctx)
	})
	return err
}

func (s *Session) Cart(ctx context.Context) (CartView, error) {
	return view(ctx, s, "cart.show", func(ctx context.Context) (CartView, error) {
		lines, err := s.cart.Lines(ctx)
		if err != nil {
			return CartView{}, err
		}
		currency, err := s.settings.Currency(ctx)
		if err != nil {
			return CartView{}, err
		}
		return CartView{Lines: lines, Totals: cart.Sum(lines), Currency: currency}, nil
	})
}

// Checkout

func (s *Session) Checkout(ctx context.Context) (checkout.Result, error) {
	return mutate(ctx, s, "checkout", s.checkout.Checkout)
}

// History returns every recorded transaction, oldest first.
func (s *Session) History(ctx context.Context) ([]model.Transaction, error) {
	return view(ctx, s, "history", func(ctx context.Context) ([]model.Transaction, error) {
		return checkout.History(ctx, s.store)
	})
}

// Settings

// Setting returns the stored or default value of key.
func (s *Session) Setting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	type result struct {
		raw json.RawMessage
		ok  bool
	}
	r, err := view(ctx, s, "settings.get", func(ctx context.Context) (result, error) {
		all, err := s.settings.All(ctx)
		if err != nil {
			return result{}, err
		}
		raw, ok := all[key]
		return result{raw, ok}, nil
	})
	return r.raw, r.ok, err
}

func (s *Session) SetSetting(ctx context.Context, key string, value json.RawMessage) error {
	_, err := mutate(ctx, s, "settings.set", func(ctx context.Context) (none, error) {
		return none{}, s.settings.Set(ctx, key, value)
	})
	return err
}

func (s *Session) Settings(ctx context.Context) (map[string]json.RawMessage, error) {
	return view(ctx, s, "settings.list", s.settings.All)
}

func (s *Session) ReviewQueue(ctx context.Context) ([]model.ReviewItem, error) {
	return view(ctx, s, "review.list", s.settings.ReviewQueue)
}

func (s *Session) ClearReview(ctx context.Context) (int, error) {
	return view(ctx, s, "review.clear", s.settings.ClearReview)
}

// Backup

// Export writes a full backup to w.
func (s *Session) Export(ctx context.Context, w io.Writer) error {
	_, err := view(ctx, s, "export", func(ctx context.Context) (none, error) {
		return none{}, snapshot.Export(ctx, s.store, w, s.clock)
	})
	return err
}

// Import validates the document in r and applies it atomically.
func (s *Session) Import(ctx context.Context, r io.Reader, source string) (snapshot.Report, error) {
	return mutate(ctx, s, "import", func(ctx context.Context) (snapshot.Report, error) {
		return snapshot.Import(ctx, s.store, r, source, s.clock)
	})
}

// Reset deletes all local data. It never schedules a push.
func (s *Session) Reset(ctx context.Context) error {
	_, err := view(ctx, s, "reset", func(ctx context.Context) (none, error) {
		return none{}, s.store.InTx(ctx, func(tx *store.Tx) error {
			for _, c := range store.Collections {
				if err := tx.Clear(ctx, c); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err == nil {
		s.logger.Info("local data reset")
	}
	return err
}
