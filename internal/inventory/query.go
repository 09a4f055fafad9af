package inventory

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/roach88/electromanage/internal/model"
)

// Stats summarises the inventory.
type Stats struct {
	TotalComponents   int             `json:"totalComponents"`
	TotalValue        decimal.Decimal `json:"totalValue"`
	LowStockItems     int             `json:"lowStockItems"`
	Categories        int             `json:"categories"`
	LowStockThreshold int             `json:"lowStockThreshold"`
}

// CategorySummary is the count and stock value of one category.
type CategorySummary struct {
	Category string          `json:"category"`
	Count    int             `json:"count"`
	Value    decimal.Decimal `json:"value"`
}

// Search returns components whose name, description or category contains
// term, compared case-insensitively. An empty term matches everything.
func (s *Service) Search(ctx context.Context, term string) ([]model.Component, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	term = strings.TrimSpace(term)
	if term == "" {
		return all, nil
	}

	fold := cases.Fold()
	needle := fold.String(clean(term))

	out := []model.Component{}
	for _, c := range all {
		if strings.Contains(fold.String(c.Name), needle) ||
			strings.Contains(fold.String(c.Description), needle) ||
			strings.Contains(fold.String(c.Category), needle) {
			out = append(out, c)
		}
	}
	return out, nil
}

// Categories returns the distinct categories, sorted.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	out := []string{}
	for _, c := range all {
		if !seen[c.Category] {
			seen[c.Category] = true
			out = append(out, c.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// CategoryBreakdown returns count and value per category, sorted by category.
func (s *Service) CategoryBreakdown(ctx context.Context) ([]CategorySummary, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byCat := make(map[string]*CategorySummary)
	for _, c := range all {
		sum, ok := byCat[c.Category]
		if !ok {
			sum = &CategorySummary{Category: c.Category, Value: decimal.Zero}
			byCat[c.Category] = sum
		}
		sum.Count++
		sum.Value = sum.Value.Add(c.Value())
	}

	out := make([]CategorySummary, 0, len(byCat))
	for _, sum := range byCat {
		sum.Value = model.RoundMoney(sum.Value)
		out = append(out, *sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

// ComputeStats recomputes the inventory summary from live data.
// A component is low on stock when its stock is below threshold.
func (s *Service) ComputeStats(ctx context.Context, threshold int) (Stats, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		TotalComponents:   len(all),
		TotalValue:        decimal.Zero,
		LowStockThreshold: threshold,
	}
	categories := make(map[string]bool)
	for _, c := range all {
		stats.TotalValue = stats.TotalValue.Add(c.Value())
		if c.Stock < threshold {
			stats.LowStockItems++
		}
		categories[c.Category] = true
	}
	stats.TotalValue = model.RoundMoney(stats.TotalValue)
	stats.Categories = len(categories)
	return stats, nil
}
