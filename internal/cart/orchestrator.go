package cart

import "github.com/shopspring/decimal"

// Recalculate applies engine prices across a set of cart lines: every
// decorated line has its unit price forced to the computed value and its
// line total recomputed. Lines without a computed price pass through
// unchanged. The input slice is never mutated; the result is a fresh slice
// in the same order. Running it twice yields the same result as running it
// once.
func Recalculate(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		if it.ComputedUnitPrice != nil {
			it.UnitPrice = *it.ComputedUnitPrice
			qty := it.Quantity
			if qty < 0 {
				qty = 0
			}
			it.TotalLineAmount = it.UnitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2)
		}
		out[i] = it
	}
	return out
}

// Subtotal sums the line totals of already-recalculated items.
func Subtotal(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.TotalLineAmount)
	}
	return total.Round(2)
}
