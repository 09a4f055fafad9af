package checkout

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/electromanage/internal/cart"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
	"github.com/roach88/electromanage/internal/testutil"
)

type fixture struct {
	store *store.Store
	clock *testutil.StepClock
	inv   *inventory.Service
	cart  *cart.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := testutil.NewStepClock(testutil.Epoch, time.Second)
	inv := inventory.New(s, testutil.NewSequentialIDs("comp"), clock, nil)
	return fixture{store: s, clock: clock, inv: inv, cart: cart.New(s, inv, clock, nil)}
}

func (f fixture) checkout(stock Stock, c Cart, ex store.Executor) *Service {
	if stock == nil {
		stock = f.inv
	}
	if c == nil {
		c = f.cart
	}
	if ex == nil {
		ex = f.store
	}
	return New(ex, stock, c, testutil.NewSequentialIDs("tx"), f.clock, nil)
}

func (f fixture) component(t *testing.T, name string, stock int, cost string) model.Component {
	t.Helper()
	c, err := f.inv.AddComponent(context.Background(), inventory.NewComponent{
		Name: name, Category: "Test", Stock: stock, Cost: decimal.RequireFromString(cost),
	})
	require.NoError(t, err)
	return c
}

func (f fixture) stockOf(t *testing.T, id string) int {
	t.Helper()
	c, err := f.inv.Get(context.Background(), id)
	require.NoError(t, err)
	return c.Stock
}

func TestCheckout_StockFiveScenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	c := f.component(t, "Arduino Uno R3", 5, "22.90")

	_, err := f.cart.Add(ctx, c.ID, 3)
	require.NoError(t, err)

	_, err = f.cart.Add(ctx, c.ID, 3)
	require.Error(t, err)
	assert.True(t, model.IsInsufficientStock(err))

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	require.NoError(t, f.cart.SetQuantity(ctx, c.ID, 5))

	res, err := f.checkout(nil, nil, nil).Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, res.State)

	assert.Equal(t, 0, f.stockOf(t, c.ID))
	assert.True(t, res.Transaction.Total.Equal(decimal.RequireFromString("114.50")), "got %s", res.Transaction.Total)
	require.Len(t, res.Transaction.Lines, 1)
	assert.Equal(t, 5, res.Transaction.Lines[0].Quantity)

	history, err := History(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Transaction.ID, history[0].ID)

	lines, err = f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := setup(t)

	res, err := f.checkout(nil, nil, nil).Checkout(context.Background())
	assert.True(t, model.IsValidation(err))
	assert.Equal(t, StateAborted, res.State)
}

func TestCheckout_ValidationFailureMutatesNothing(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 2, "1.00")
	b := f.component(t, "B", 3, "1.00")

	_, err := f.cart.Add(ctx, a.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, b.ID, 3)
	require.NoError(t, err)

	// Another session sells one B after it was reserved.
	_, err = f.inv.AdjustStock(ctx, b.ID, -1)
	require.NoError(t, err)

	res, err := f.checkout(nil, nil, nil).Checkout(ctx)
	require.Error(t, err)
	assert.True(t, model.IsInsufficientStock(err))
	assert.Contains(t, err.Error(), "(B)", "error names the failing line")
	assert.Equal(t, StateAborted, res.State)

	assert.Equal(t, 2, f.stockOf(t, a.ID))
	assert.Equal(t, 2, f.stockOf(t, b.ID))

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2, "cart untouched")

	history, err := History(ctx, f.store)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestCheckout_MissingComponent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 2, "1.00")

	_, err := f.cart.Add(ctx, a.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.store.Delete(ctx, store.Components, a.ID))

	_, err = f.checkout(nil, nil, nil).Checkout(ctx)
	assert.True(t, model.IsNotFound(err))
	assert.Contains(t, err.Error(), "(A)")
}

// dropBeforeFirstAdjust simulates a mutation slipping in between
// validation and commit: on the first decrement it drains victim.
type dropBeforeFirstAdjust struct {
	*inventory.Service
	victim  string
	dropped bool
}

func (d *dropBeforeFirstAdjust) AdjustStock(ctx context.Context, id string, delta int) (model.Component, error) {
	if !d.dropped {
		d.dropped = true
		c, err := d.Service.Get(ctx, d.victim)
		if err != nil {
			return model.Component{}, err
		}
		if _, err := d.Service.AdjustStock(ctx, d.victim, -c.Stock); err != nil {
			return model.Component{}, err
		}
	}
	return d.Service.AdjustStock(ctx, id, delta)
}

func TestCheckout_ConcurrentDropRollsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 1, "4.00")
	b := f.component(t, "B", 1, "6.00")

	_, err := f.cart.Add(ctx, a.ID, 1)
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, b.ID, 1)
	require.NoError(t, err)

	stock := &dropBeforeFirstAdjust{Service: f.inv, victim: b.ID}
	res, err := f.checkout(stock, nil, nil).Checkout(ctx)

	require.Error(t, err)
	assert.True(t, model.IsCheckoutFailed(err))
	assert.True(t, model.IsInsufficientStock(errors.Unwrap(err)), "cause is kept: %v", err)
	assert.Equal(t, StateAborted, res.State)

	assert.Equal(t, 1, f.stockOf(t, a.ID), "applied decrement is reversed")
	assert.Equal(t, 0, f.stockOf(t, b.ID), "external drop is kept")

	history, err := History(ctx, f.store)
	require.NoError(t, err)
	assert.Empty(t, history, "no transaction recorded")

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

// failingLog rejects every transaction write.
type failingLog struct {
	store.Executor
}

func (failingLog) Add(context.Context, store.Collection, store.Record) (string, error) {
	return "", errors.New("disk full")
}

func TestCheckout_RecordFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 3, "1.00")
	b := f.component(t, "B", 3, "1.00")

	_, err := f.cart.Add(ctx, a.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, b.ID, 1)
	require.NoError(t, err)

	_, err = f.checkout(nil, nil, failingLog{Executor: f.store}).Checkout(ctx)
	require.Error(t, err)
	assert.True(t, model.IsCheckoutFailed(err))
	assert.Contains(t, err.Error(), "disk full")

	assert.Equal(t, 3, f.stockOf(t, a.ID))
	assert.Equal(t, 3, f.stockOf(t, b.ID))
}

func (f fixture) transactional(stockFor func(ex store.Executor) Stock) *Service {
	if stockFor == nil {
		stockFor = func(ex store.Executor) Stock { return f.inv.With(ex) }
	}
	return New(f.store, f.inv, f.cart, testutil.NewSequentialIDs("tx"), f.clock, nil, Transactional(f.store, stockFor))
}

func TestCheckout_Transactional(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 5, "2.50")

	_, err := f.cart.Add(ctx, a.ID, 2)
	require.NoError(t, err)

	res, err := f.transactional(nil).Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, 3, f.stockOf(t, a.ID))

	history, err := History(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.Transaction.ID, history[0].ID)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

// failSecondAdjust lets the first decrement through and rejects the next.
type failSecondAdjust struct {
	Stock
	calls *int
}

func (s failSecondAdjust) AdjustStock(ctx context.Context, id string, delta int) (model.Component, error) {
	*s.calls++
	if *s.calls == 2 {
		return model.Component{}, errors.New("io error")
	}
	return s.Stock.AdjustStock(ctx, id, delta)
}

func TestCheckout_TransactionalFailureDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 3, "1.00")
	b := f.component(t, "B", 3, "1.00")

	_, err := f.cart.Add(ctx, a.ID, 2)
	require.NoError(t, err)
	_, err = f.cart.Add(ctx, b.ID, 1)
	require.NoError(t, err)

	calls := 0
	svc := f.transactional(func(ex store.Executor) Stock {
		return failSecondAdjust{Stock: f.inv.With(ex), calls: &calls}
	})
	res, err := svc.Checkout(ctx)
	require.Error(t, err)
	assert.True(t, model.IsCheckoutFailed(err))
	assert.Contains(t, err.Error(), "io error")
	assert.Equal(t, StateAborted, res.State)
	assert.Equal(t, 2, calls, "no compensating adjustments")

	got, err := f.inv.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Stock, "first decrement is discarded")
	assert.True(t, a.UpdatedAt.Equal(got.UpdatedAt), "updatedAt untouched")
	assert.Equal(t, 3, f.stockOf(t, b.ID))

	history, err := History(ctx, f.store)
	require.NoError(t, err)
	assert.Empty(t, history)

	lines, err := f.cart.Lines(ctx)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

// stuckCart cannot be cleared.
type stuckCart struct {
	*cart.Service
}

func (stuckCart) Clear(context.Context) error {
	return errors.New("locked")
}

func TestCheckout_CartClearFailureKeepsOrder(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	a := f.component(t, "A", 3, "2.00")

	_, err := f.cart.Add(ctx, a.ID, 2)
	require.NoError(t, err)

	res, err := f.checkout(nil, stuckCart{Service: f.cart}, nil).Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, res.State)
	assert.Equal(t, 1, f.stockOf(t, a.ID))

	history, err := History(ctx, f.store)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHistory_OrderedByDate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	base := testutil.Epoch
	for i, offset := range []time.Duration{2 * time.Hour, time.Hour, 3 * time.Hour} {
		_, err := Table.Add(ctx, f.store, model.Transaction{
			ID:    []string{"b", "a", "c"}[i],
			Total: decimal.Zero,
			Date:  base.Add(offset),
		})
		require.NoError(t, err)
	}

	all, err := History(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "b", all[1].ID)
	assert.Equal(t, "c", all[2].ID)

	recent, err := Since(ctx, f.store, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].ID)
}
