package catalog

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested catalog record does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Product is immutable reference data for a garment or decoration product.
type Product struct {
	ID   string
	Name string
	Code string
}

// PriceBookEntry binds a product to a unit price within one price book.
type PriceBookEntry struct {
	ID          string
	ProductID   string
	PriceBookID string
	UnitPrice   decimal.Decimal
	Currency    string
	Active      bool
}

// RuleKind discriminates the two decoration pricing strategies.
type RuleKind string

const (
	// RuleAdditive prices a view from per-unit, per-color, and per-stitch add-ons.
	RuleAdditive RuleKind = "additive"
	// RuleLookupOverride prices the primary view from a flat per-unit override
	// keyed by (garment product, decoration product).
	RuleLookupOverride RuleKind = "lookup_override"
)

// DecorationRule is a tagged variant: additive fields are meaningful when
// Kind is RuleAdditive, lookup fields when Kind is RuleLookupOverride.
type DecorationRule struct {
	ID        string
	ProductID string
	Kind      RuleKind
	Active    bool

	// Additive.
	DecorationCode string
	ViewCode       string
	MinQty         *int
	MaxQty         *int
	PerUnitAddOn   decimal.Decimal
	PerColorAddOn  *decimal.Decimal
	PerStitchAddOn *decimal.Decimal
	SetupFee       *decimal.Decimal

	// Lookup override.
	DecorationProductID string
	OverridePrice       decimal.Decimal
}

// AppliesToQty reports whether qty falls inside the rule's closed quantity
// range. A nil bound is unbounded on that side.
func (r DecorationRule) AppliesToQty(qty int) bool {
	if r.MinQty != nil && qty < *r.MinQty {
		return false
	}
	if r.MaxQty != nil && qty > *r.MaxQty {
		return false
	}
	return true
}

// ShopDefaults is the shop-level configuration consulted by the lookup-override
// pricing mode.
type ShopDefaults struct {
	AuthPriceBookID      string
	FlatDecorationCode   string
	ThreeDDecorationCode string
}

// RuleFilter narrows a decoration rule listing.
type RuleFilter struct {
	ProductID           string
	Kind                RuleKind
	DecorationProductID string
}

// Store is the read-only catalog consulted by the pricing engine. Listings are
// returned in a stable order so that first-match rule resolution is
// deterministic.
type Store interface {
	ProductByCode(ctx context.Context, code string) (Product, error)
	ActivePriceBookEntry(ctx context.Context, productID, priceBookID string) (PriceBookEntry, error)
	DecorationRules(ctx context.Context, f RuleFilter) ([]DecorationRule, error)
	ShopDefaults(ctx context.Context) (ShopDefaults, error)
}
