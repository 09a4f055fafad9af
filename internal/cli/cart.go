package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/model"
)

// NewCartCommand creates the cart command group.
func NewCartCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Build an order before checkout",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <component-id> [quantity]",
		Short: "Add units of a component to the cart (default 1)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				qty := 1
				if len(args) == 2 {
					var err error
					if qty, err = parseQuantity(args[1]); err != nil {
						return f.Fail(err)
					}
				}
				line, err := s.AddToCart(commandContext(cmd), args[0], qty)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(line, func(w io.Writer) {
					fmt.Fprintf(w, "%s x%d in cart\n", line.Name, line.Quantity)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <component-id> <quantity>",
		Short: "Set a cart line's quantity (0 removes it)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				qty, err := parseQuantity(args[1])
				if err != nil {
					return f.Fail(err)
				}
				ctx := commandContext(cmd)
				if err := s.SetCartQuantity(ctx, args[0], qty); err != nil {
					return f.Fail(err)
				}
				v, err := s.Cart(ctx)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(v, renderCart(v))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <component-id>",
		Short: "Remove a line from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				if err := s.RemoveFromCart(commandContext(cmd), args[0]); err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]string{"removed": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Removed %s from cart\n", args[0])
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				if err := s.ClearCart(commandContext(cmd)); err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]bool{"cleared": true}, func(w io.Writer) {
					fmt.Fprintln(w, "Cart cleared")
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show cart lines and totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				v, err := s.Cart(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(v, renderCart(v))
			})
		},
	})

	return cmd
}

func parseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, model.Validation("quantity", "quantity %q is not a number", s)
	}
	return n, nil
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Turn the cart into a transaction and decrement stock",
		Long: `Turn the cart into a transaction and decrement stock.

Every line is checked against live stock first. If any line fails, no
stock changes and the cart is kept.

Exit codes:
  0 - Transaction committed
  1 - Checkout rejected (empty cart, insufficient stock, missing component)
  2 - Command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				res, err := s.Checkout(ctx)
				if err != nil {
					return f.Fail(err)
				}
				tx := res.Transaction
				currency := currencyOf(ctx, s)
				return f.Success(res, func(w io.Writer) {
					fmt.Fprintf(w, "Checked out %s: %d line(s), total %s\n", tx.ID, len(tx.Lines), money(tx.Total, currency))
				})
			})
		},
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List recorded transactions, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				txs, err := s.History(ctx)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(txs, renderTransactions(txs, currencyOf(ctx, s)))
			})
		},
	}
}
