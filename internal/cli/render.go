package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/roach88/electromanage/internal/app"
	"github.com/roach88/electromanage/internal/model"
	"github.com/roach88/electromanage/internal/settings"
)

const timeLayout = "2006-01-02 15:04"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func money(d decimal.Decimal, currency string) string {
	return currency + " " + d.StringFixed(model.MoneyPlaces)
}

// currencyOf reads the currency setting, falling back to the default.
func currencyOf(ctx context.Context, s *app.Session) string {
	raw, ok, err := s.Setting(ctx, model.SettingCurrency)
	if err != nil || !ok {
		return settings.DefaultCurrency
	}
	var code string
	if json.Unmarshal(raw, &code) != nil || code == "" {
		return settings.DefaultCurrency
	}
	return code
}

func renderComponents(cs []model.Component, currency string) func(io.Writer) {
	return func(w io.Writer) {
		if len(cs) == 0 {
			fmt.Fprintln(w, "No components.")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tSTOCK\tCOST")
		for _, c := range cs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", c.ID, c.Name, c.Category, c.Stock, money(c.Cost, currency))
		}
		tw.Flush()
	}
}

func renderComponent(c model.Component, currency string) func(io.Writer) {
	return func(w io.Writer) {
		tw := newTable(w)
		fmt.Fprintf(tw, "ID:\t%s\n", c.ID)
		fmt.Fprintf(tw, "Name:\t%s\n", c.Name)
		fmt.Fprintf(tw, "Category:\t%s\n", c.Category)
		fmt.Fprintf(tw, "Stock:\t%d\n", c.Stock)
		fmt.Fprintf(tw, "Cost:\t%s\n", money(c.Cost, currency))
		if c.Description != "" {
			fmt.Fprintf(tw, "Description:\t%s\n", c.Description)
		}
		fmt.Fprintf(tw, "Updated:\t%s\n", c.UpdatedAt.Local().Format(timeLayout))
		tw.Flush()
	}
}

func renderCart(v app.CartView) func(io.Writer) {
	return func(w io.Writer) {
		if len(v.Lines) == 0 {
			fmt.Fprintln(w, "Cart is empty.")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "COMPONENT\tNAME\tQTY\tPRICE\tSUBTOTAL")
		for _, l := range v.Lines {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				l.ComponentID, l.Name, l.Quantity, money(l.Price, v.Currency), money(l.Subtotal(), v.Currency))
		}
		tw.Flush()
		fmt.Fprintf(w, "%d item(s), %d line(s), total %s\n", v.Totals.Items, v.Totals.Lines, money(v.Totals.Total, v.Currency))
	}
}

func renderTransactions(txs []model.Transaction, currency string) func(io.Writer) {
	return func(w io.Writer) {
		if len(txs) == 0 {
			fmt.Fprintln(w, "No transactions.")
			return
		}
		tw := newTable(w)
		fmt.Fprintln(tw, "ID\tDATE\tLINES\tTOTAL")
		for _, tx := range txs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", tx.ID, tx.Date.Local().Format(timeLayout), len(tx.Lines), money(tx.Total, currency))
		}
		tw.Flush()
	}
}
