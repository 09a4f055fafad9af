package checkout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/store"
)

// State is a checkout state machine state.
type State string

const (
	StateValidating State = "validating"
	StateCommitting State = "committing"
	StateCommitted  State = "committed"
	StateAborted    State = "aborted"
)

// Stock reads and adjusts live component stock.
type Stock interface {
	Get(ctx context.Context, id string) (model.Component, error)
	AdjustStock(ctx context.Context, id string, delta int) (model.Component, error)
}

// Cart lists and clears the reservation lines.
type Cart interface {
	Lines(ctx context.Context) ([]model.CartLine, error)
	Clear(ctx context.Context) error
}

// Result reports how a checkout ended.
// Transaction is set only when State is StateCommitted.
type Result struct {
	State       State             `json:"state"`
	Transaction model.Transaction `json:"transaction"`
}

// Service performs checkouts.
type Service struct {
	ex     store.Executor
	stock  Stock
	cart   Cart
	ids    model.IDGenerator
	clock  model.Clock
	logger *slog.Logger

	db       store.Transactor
	stockFor func(ex store.Executor) Stock
}

// Option configures a Service.
type Option func(*Service)

// Transactional commits the stock decrements and the transaction record in
// one transaction on db. stockFor binds the stock source to that
// transaction. Without it each write commits on its own and a failed
// commit is compensated line by line.
func Transactional(db store.Transactor, stockFor func(ex store.Executor) Stock) Option {
	return func(s *Service) {
		s.db = db
		s.stockFor = stockFor
	}
}

// New creates a checkout Service. ex is where transactions are recorded.
func New(ex store.Executor, stock Stock, cart Cart, ids model.IDGenerator, clock model.Clock, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{ex: ex, stock: stock, cart: cart, ids: ids, clock: clock, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout converts the cart into stock decrements and one Transaction.
//
// On success the cart is cleared. A failure to clear the cart after the
// transaction is recorded is logged and does not undo the order.
func (s *Service) Checkout(ctx context.Context) (Result, error) {
	res := Result{State: StateValidating}
	s.logger.Debug("checkout", "state", res.State)

	lines, err := s.cart.Lines(ctx)
	if err != nil {
		return s.abort(res, err)
	}
	if len(lines) == 0 {
		return s.abort(res, model.Validation("cart", "cart is empty"))
	}

	if err := s.validate(ctx, lines); err != nil {
		return s.abort(res, err)
	}

	res.State = StateCommitting
	s.logger.Debug("checkout", "state", res.State, "lines", len(lines))

	var tx model.Transaction
	if s.db != nil {
		err = s.db.InTx(ctx, func(stx *store.Tx) error {
			var cerr error
			tx, cerr = s.commit(ctx, stx, s.stockFor(stx), lines, false)
			return cerr
		})
	} else {
		tx, err = s.commit(ctx, s.ex, s.stock, lines, true)
	}
	if err != nil {
		if !model.IsCheckoutFailed(err) {
			err = model.CheckoutFailed("transaction", err)
		}
		return s.abort(res, err)
	}

	res.State = StateCommitted
	res.Transaction = tx

	if err := s.cart.Clear(ctx); err != nil {
		s.logger.Warn("cart not cleared after checkout", "transaction", tx.ID, "error", err)
	}

	s.logger.Info("checkout committed",
		"transaction", tx.ID,
		"lines", len(tx.Lines),
		"total", tx.Total.StringFixed(model.MoneyPlaces),
	)
	return res, nil
}

// commit applies every decrement and records the transaction on ex. With
// compensate set, a failure reverses the decrements already applied;
// otherwise the caller's storage transaction discards them.
func (s *Service) commit(ctx context.Context, ex store.Executor, stock Stock, lines []model.CartLine, compensate bool) (model.Transaction, error) {
	done := make([]model.CartLine, 0, len(lines))
	for _, l := range lines {
		if _, err := stock.AdjustStock(ctx, l.ComponentID, -l.Quantity); err != nil {
			if compensate {
				s.rollback(ctx, stock, done)
			}
			return model.Transaction{}, model.CheckoutFailed(l.Name, err)
		}
		done = append(done, l)
	}

	tx := s.record(lines)
	if _, err := Table.Add(ctx, ex, tx); err != nil {
		if compensate {
			s.rollback(ctx, stock, done)
		}
		return model.Transaction{}, model.CheckoutFailed("transaction "+tx.ID, fmt.Errorf("record transaction: %w", err))
	}
	return tx, nil
}

// validate re-reads every line's component. It mutates nothing and
// reports the first failing line.
func (s *Service) validate(ctx context.Context, lines []model.CartLine) error {
	for _, l := range lines {
		c, err := s.stock.Get(ctx, l.ComponentID)
		if err != nil {
			if model.IsNotFound(err) {
				return model.NotFound(l.Name, "component no longer exists")
			}
			return err
		}
		if l.Quantity > c.Stock {
			return model.InsufficientStock(c.Name, l.Quantity, c.Stock)
		}
	}
	return nil
}

// rollback reverses applied decrements in reverse order. Failures are
// logged; the remaining lines are still compensated.
func (s *Service) rollback(ctx context.Context, stock Stock, done []model.CartLine) {
	for i := len(done) - 1; i >= 0; i-- {
		l := done[i]
		if _, err := stock.AdjustStock(ctx, l.ComponentID, l.Quantity); err != nil {
			s.logger.Error("checkout compensation failed",
				"component", l.ComponentID,
				"quantity", l.Quantity,
				"error", err,
			)
		}
	}
}

func (s *Service) record(lines []model.CartLine) model.Transaction {
	tx := model.Transaction{
		ID:    s.ids.NewID(),
		Lines: make([]model.TransactionLine, 0, len(lines)),
		Total: decimal.Zero,
		Date:  s.clock.Now(),
	}
	for _, l := range lines {
		tx.Lines = append(tx.Lines, model.TransactionLine{
			ComponentID: l.ComponentID,
			Name:        l.Name,
			Price:       l.Price,
			Quantity:    l.Quantity,
		})
		tx.Total = tx.Total.Add(l.Subtotal())
	}
	tx.Total = model.RoundMoney(tx.Total)
	return tx
}

func (s *Service) abort(res Result, err error) (Result, error) {
	s.logger.Debug("checkout", "state", StateAborted, "from", res.State, "error", err)
	return Result{State: StateAborted}, err
}
