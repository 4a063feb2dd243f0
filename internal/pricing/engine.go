// Package pricing implements the decoration pricing resolution engine: rule
// matching and price composition turning a design payload plus quantity into a
// priced, auditable result.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/design"
	"github.com/noah-isme/backend-decor/internal/obs"
)

// Mode selects the price composition strategy.
type Mode string

const (
	// ModeAdditive composes per-unit add-ons from attribute-weighted rules
	// plus setup fees allocated across the quantity.
	ModeAdditive Mode = "additive"
	// ModeLookup composes a flat override for the primary view plus price
	// book prices for additional decorated locations.
	ModeLookup Mode = "lookup"
)

// Result is the outcome of one pricing call. Amounts exposed here are rounded
// to currency precision; internal accumulation keeps full precision.
type Result struct {
	ProductID               string          `json:"productId"`
	PriceBookEntryID        string          `json:"priceBookEntryId"`
	Mode                    Mode            `json:"mode"`
	Quantity                int             `json:"quantity"`
	BaseUnitPrice           decimal.Decimal `json:"baseUnitPrice"`
	DecorationTotal         decimal.Decimal `json:"perUnitDecorationTotal"`
	SetupPerUnit            decimal.Decimal `json:"allocatedSetupPerUnit"`
	DecorationOverride      decimal.Decimal `json:"decorationOverride"`
	AdditionalLocationTotal decimal.Decimal `json:"additionalLocationTotal"`
	ComputedUnitPrice       decimal.Decimal `json:"computedUnitPrice"`
	Fingerprint             string          `json:"pricingFingerprint"`
	Trace                   []string        `json:"trace"`
}

// Engine computes decorated unit prices against a read-only catalog snapshot.
// It holds no mutable state; concurrent calls are safe.
type Engine struct {
	Store catalog.Store
	Mode  Mode
}

// CalculateUnitPrice prices the payload for the given quantity. A quantity of
// zero or less is floored to one. The only fatal conditions are
// ErrProductNotFound and ErrPriceNotFound; every other unmatched lookup
// degrades to a zero contribution recorded on the trace.
func (e *Engine) CalculateUnitPrice(ctx context.Context, payload design.Payload, quantity int) (Result, error) {
	if e == nil || e.Store == nil {
		return Result{}, errors.New("pricing engine not configured")
	}
	q := quantity
	tr := &Trace{}
	if q <= 0 {
		q = 1
		tr.Addf("quantity %d floored to 1", quantity)
	}
	switch e.Mode {
	case ModeLookup:
		return e.lookupPrice(ctx, payload, q, tr)
	default:
		return e.additivePrice(ctx, payload, q, tr)
	}
}

// garmentBase resolves the garment product and its active price book entry.
// priceBookID may be empty to accept any price book.
func (e *Engine) garmentBase(ctx context.Context, sku, priceBookID string) (catalog.Product, catalog.PriceBookEntry, error) {
	product, err := e.Store.ProductByCode(ctx, sku)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, catalog.PriceBookEntry{}, fmt.Errorf("sku %q: %w", sku, ErrProductNotFound)
		}
		return catalog.Product{}, catalog.PriceBookEntry{}, fmt.Errorf("resolve product: %w", err)
	}
	entry, err := e.Store.ActivePriceBookEntry(ctx, product.ID, priceBookID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return catalog.Product{}, catalog.PriceBookEntry{}, fmt.Errorf("sku %q: %w", sku, ErrPriceNotFound)
		}
		return catalog.Product{}, catalog.PriceBookEntry{}, fmt.Errorf("resolve price book entry: %w", err)
	}
	return product, entry, nil
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func countResolution(outcome string) {
	if obs.RuleResolutionTotal != nil {
		obs.RuleResolutionTotal.WithLabelValues(outcome).Inc()
	}
}
