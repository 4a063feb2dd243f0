package catalog

import "context"

// MemoryStore is an in-memory Store used by tests and the seeder. Rule order
// follows insertion order.
type MemoryStore struct {
	Products []Product
	Entries  []PriceBookEntry
	Rules    []DecorationRule
	Defaults ShopDefaults
}

// ProductByCode returns the product with the given code or ErrNotFound.
func (m *MemoryStore) ProductByCode(_ context.Context, code string) (Product, error) {
	for _, p := range m.Products {
		if p.Code == code {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// ActivePriceBookEntry returns the first active entry for the product,
// restricted to priceBookID when it is non-empty.
func (m *MemoryStore) ActivePriceBookEntry(_ context.Context, productID, priceBookID string) (PriceBookEntry, error) {
	for _, e := range m.Entries {
		if !e.Active || e.ProductID != productID {
			continue
		}
		if priceBookID != "" && e.PriceBookID != priceBookID {
			continue
		}
		return e, nil
	}
	return PriceBookEntry{}, ErrNotFound
}

// DecorationRules lists rules matching the filter in insertion order.
func (m *MemoryStore) DecorationRules(_ context.Context, f RuleFilter) ([]DecorationRule, error) {
	var out []DecorationRule
	for _, r := range m.Rules {
		if f.ProductID != "" && r.ProductID != f.ProductID {
			continue
		}
		if f.Kind != "" && r.Kind != f.Kind {
			continue
		}
		if f.DecorationProductID != "" && r.DecorationProductID != f.DecorationProductID {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// ShopDefaults returns the configured shop defaults.
func (m *MemoryStore) ShopDefaults(context.Context) (ShopDefaults, error) {
	return m.Defaults, nil
}
