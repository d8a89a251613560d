// Package catalog applies stock changes to a shop's embedded product list:
// sale decrements with low-stock crossing detection, and reconciliation
// merges of detected stock.
package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	contractx "github.com/tanpawarit/neemo/agent/contract"
	"github.com/tanpawarit/neemo/commerce/model"
)

// LowStockThreshold is the quantity at or below which a product is critical.
const LowStockThreshold = 5

// Crossing is a product that went from healthy to critical in one sale.
type Crossing struct {
	Name   string  `json:"name"`
	Before float64 `json:"before"`
	After  float64 `json:"after"`
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ApplySale decrements sold quantities, flooring at zero. Only products
// touched by items whose quantity moves from above LowStockThreshold to at
// or below it are reported. touched is false when no item matched.
func ApplySale(products []model.Product, items []contractx.LineItem) (updated []model.Product, crossed []Crossing, touched bool) {
	sold := make(map[string]float64, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		sold[nameKey(item.Name)] += item.Quantity
	}

	updated = make([]model.Product, len(products))
	copy(updated, products)

	for i := range updated {
		qty, ok := sold[nameKey(updated[i].Name)]
		if !ok {
			continue
		}
		touched = true

		before := updated[i].Quantity.Float()
		after := before - qty
		if after < 0 {
			after = 0
		}
		updated[i].Quantity = model.Quantity(after)

		if before > LowStockThreshold && after <= LowStockThreshold {
			crossed = append(crossed, Crossing{
				Name:   updated[i].Name,
				Before: before,
				After:  after,
			})
		}
	}

	return updated, crossed, touched
}

type MergePolicy string

const (
	// MergeAdd adds detected quantities to stock on hand, e.g. a supplier invoice.
	MergeAdd MergePolicy = "add"
	// MergeReplace overwrites stock with the counted quantity, e.g. a shelf photo.
	MergeReplace MergePolicy = "replace"
)

func ParseMergePolicy(raw string) (MergePolicy, bool) {
	switch MergePolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", MergeAdd:
		return MergeAdd, true
	case MergeReplace:
		return MergeReplace, true
	default:
		return "", false
	}
}

// Detected is a product line read from an invoice or shelf photo.
type Detected struct {
	Name        string           `json:"name"`
	Quantity    float64          `json:"quantity"`
	BuyingPrice *decimal.Decimal `json:"buying_price,omitempty"`
}

// Merge folds detected lines into the catalog. Names match
// case-insensitively, unknown names are appended, and a positive detected
// buying price replaces the stored one.
func Merge(existing []model.Product, detected []Detected, policy MergePolicy) []model.Product {
	out := make([]model.Product, len(existing), len(existing)+len(detected))
	copy(out, existing)

	index := make(map[string]int, len(out))
	for i := range out {
		if _, dup := index[nameKey(out[i].Name)]; !dup {
			index[nameKey(out[i].Name)] = i
		}
	}

	for _, d := range detected {
		key := nameKey(d.Name)
		if key == "" {
			continue
		}
		qty := d.Quantity
		if qty < 0 {
			qty = 0
		}

		i, ok := index[key]
		if !ok {
			p := model.Product{
				Name:     strings.TrimSpace(d.Name),
				Price:    decimal.Zero,
				Quantity: model.Quantity(qty),
			}
			if hasPrice(d.BuyingPrice) {
				bp := *d.BuyingPrice
				p.BuyingPrice = &bp
			}
			out = append(out, p)
			index[key] = len(out) - 1
			continue
		}

		switch policy {
		case MergeReplace:
			out[i].Quantity = model.Quantity(qty)
		default:
			out[i].Quantity = model.Quantity(out[i].Quantity.Float() + qty)
		}
		if hasPrice(d.BuyingPrice) {
			bp := *d.BuyingPrice
			out[i].BuyingPrice = &bp
		}
	}

	return out
}

func hasPrice(p *decimal.Decimal) bool {
	return p != nil && p.IsPositive()
}
