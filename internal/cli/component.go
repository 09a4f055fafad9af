package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/inventory"
	"github.com/roach88/electromanage/internal/model"
)

// ComponentOptions holds flags shared by component add and update.
type ComponentOptions struct {
	*RootOptions
	Name        string
	Category    string
	Stock       int
	Cost        string
	Description string
}

// NewComponentCommand creates the component command group.
func NewComponentCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "component",
		Aliases: []string{"components", "c"},
		Short:   "Manage inventory components",
	}

	cmd.AddCommand(newComponentAddCommand(rootOpts))
	cmd.AddCommand(newComponentGetCommand(rootOpts))
	cmd.AddCommand(newComponentListCommand(rootOpts))
	cmd.AddCommand(newComponentSearchCommand(rootOpts))
	cmd.AddCommand(newComponentUpdateCommand(rootOpts))
	cmd.AddCommand(newComponentAdjustCommand(rootOpts))
	cmd.AddCommand(newComponentDeleteCommand(rootOpts))
	cmd.AddCommand(newComponentStatsCommand(rootOpts))
	cmd.AddCommand(newComponentCategoriesCommand(rootOpts))
	cmd.AddCommand(newComponentSeedCommand(rootOpts))

	return cmd
}

func (o *ComponentOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.Name, "name", "", "component name")
	cmd.Flags().StringVar(&o.Category, "category", "", "component category")
	cmd.Flags().IntVar(&o.Stock, "stock", 0, "units in stock")
	cmd.Flags().StringVar(&o.Cost, "cost", "0", "unit cost")
	cmd.Flags().StringVar(&o.Description, "description", "", "free-form description")
}

func parseCost(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, model.Validation("cost", "cost %q is not a number", s)
	}
	return d, nil
}

func newComponentAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComponentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a component",
		Example: `  electromanage component add --name "Arduino Uno R3" --category Microcontrollers --stock 12 --cost 22.90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				cost, err := parseCost(opts.Cost)
				if err != nil {
					return f.Fail(err)
				}
				c, err := s.AddComponent(commandContext(cmd), inventory.NewComponent{
					Name:        opts.Name,
					Category:    opts.Category,
					Stock:       opts.Stock,
					Cost:        cost,
					Description: opts.Description,
				})
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(c, func(w io.Writer) {
					fmt.Fprintf(w, "Added %s (%s)\n", c.Name, c.ID)
				})
			})
		},
	}
	opts.bind(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func newComponentGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				c, err := s.Component(ctx, args[0])
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(c, renderComponent(c, currencyOf(ctx, s)))
			})
		},
	}
}

func newComponentListCommand(opts *RootOptions) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List components, optionally in one category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				cs, err := s.Components(ctx, category)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(cs, renderComponents(cs, currencyOf(ctx, s)))
			})
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list this category")

	return cmd
}

func newComponentSearchCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Search names, categories and descriptions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				cs, err := s.Search(ctx, args[0])
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(cs, renderComponents(cs, currencyOf(ctx, s)))
			})
		},
	}
}

func newComponentUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComponentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a component",
		Long: `Change fields of a component. Only flags given on the command line
are applied.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				p, err := opts.patch(cmd)
				if err != nil {
					return f.Fail(err)
				}
				if p.Empty() {
					return f.Fail(model.Validation(args[0], "nothing to update"))
				}
				c, err := s.UpdateComponent(commandContext(cmd), args[0], p)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(c, func(w io.Writer) {
					fmt.Fprintf(w, "Updated %s (%s)\n", c.Name, c.ID)
				})
			})
		},
	}
	opts.bind(cmd)

	return cmd
}

func (o *ComponentOptions) patch(cmd *cobra.Command) (inventory.Patch, error) {
	var p inventory.Patch
	flags := cmd.Flags()
	if flags.Changed("name") {
		p.Name = &o.Name
	}
	if flags.Changed("category") {
		p.Category = &o.Category
	}
	if flags.Changed("stock") {
		p.Stock = &o.Stock
	}
	if flags.Changed("cost") {
		cost, err := parseCost(o.Cost)
		if err != nil {
			return inventory.Patch{}, err
		}
		p.Cost = &cost
	}
	if flags.Changed("description") {
		p.Description = &o.Description
	}
	return p, nil
}

func newComponentAdjustCommand(opts *RootOptions) *cobra.Command {
	var by int

	cmd := &cobra.Command{
		Use:     "adjust <id> --by <delta>",
		Short:   "Add to or remove from a component's stock",
		Example: `  electromanage component adjust id-1 --by=-3`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				c, err := s.AdjustStock(commandContext(cmd), args[0], by)
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(c, func(w io.Writer) {
					fmt.Fprintf(w, "%s stock is now %d\n", c.Name, c.Stock)
				})
			})
		},
	}
	cmd.Flags().IntVar(&by, "by", 0, "stock delta (negative to remove)")
	_ = cmd.MarkFlagRequired("by")

	return cmd
}

func newComponentDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a component and its cart line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				if err := s.DeleteComponent(commandContext(cmd), args[0]); err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]string{"deleted": args[0]}, func(w io.Writer) {
					fmt.Fprintf(w, "Deleted %s\n", args[0])
				})
			})
		},
	}
}

func newComponentStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show inventory statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				st, err := s.Stats(ctx)
				if err != nil {
					return f.Fail(err)
				}
				currency := currencyOf(ctx, s)
				return f.Success(st, func(w io.Writer) {
					tw := newTable(w)
					fmt.Fprintf(tw, "Components:\t%d\n", st.TotalComponents)
					fmt.Fprintf(tw, "Categories:\t%d\n", st.Categories)
					fmt.Fprintf(tw, "Stock value:\t%s\n", money(st.TotalValue, currency))
					fmt.Fprintf(tw, "Low stock:\t%d (below %d)\n", st.LowStockItems, st.LowStockThreshold)
					tw.Flush()
				})
			})
		},
	}
}

func newComponentCategoriesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories with counts and stock value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				ctx := commandContext(cmd)
				cats, err := s.Categories(ctx)
				if err != nil {
					return f.Fail(err)
				}
				currency := currencyOf(ctx, s)
				return f.Success(cats, func(w io.Writer) {
					tw := newTable(w)
					fmt.Fprintln(tw, "CATEGORY\tCOUNT\tVALUE")
					for _, c := range cats {
						fmt.Fprintf(tw, "%s\t%d\t%s\n", c.Category, c.Count, money(c.Value, currency))
					}
					tw.Flush()
				})
			})
		},
	}
}

func newComponentSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load demo components into an empty inventory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *app.Session, f *OutputFormatter) error {
				n, err := s.Seed(commandContext(cmd))
				if err != nil {
					return f.Fail(err)
				}
				return f.Success(map[string]int{"added": n}, func(w io.Writer) {
					if n == 0 {
						fmt.Fprintln(w, "Inventory is not empty; nothing seeded.")
						return
					}
					fmt.Fprintf(w, "Seeded %d components\n", n)
				})
			})
		},
	}
}
