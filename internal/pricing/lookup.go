package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/design"
)

// lookupPrice composes a flat override for the primary FRONT view plus price
// book prices for every other decorated location, all resolved in the
// authenticated price book from the shop defaults.
func (e *Engine) lookupPrice(ctx context.Context, payload design.Payload, q int, tr *Trace) (Result, error) {
	defaults, err := e.Store.ShopDefaults(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("resolve shop defaults: %w", err)
	}
	tr.Addf("resolved shop defaults: price book %s, flat %s, 3D %s",
		defaults.AuthPriceBookID, defaults.FlatDecorationCode, defaults.ThreeDDecorationCode)

	product, entry, err := e.garmentBase(ctx, payload.SKU, defaults.AuthPriceBookID)
	if err != nil {
		return Result{}, err
	}
	tr.Addf("base price %s for %s from price book entry %s", entry.UnitPrice.StringFixed(2), product.Code, entry.ID)

	threeD := design.NormalizeCode(defaults.ThreeDDecorationCode)
	flat := design.NormalizeCode(defaults.FlatDecorationCode)

	override := decimal.Zero
	primary := payload.PrimaryView()
	if primary >= 0 && payload.Views[primary].Decorated() {
		code := design.NormalizeCode(payload.Views[primary].DecorationCode)
		switch code {
		case threeD:
			override = e.frontOverride(ctx, product, defaults, tr)
		case flat:
			tr.Addf("FRONT: flat decoration priced by base entry, no override")
		default:
			tr.Addf("FRONT: decoration code %s matches no configured code, contributing zero", code)
		}
	}

	additional := decimal.Zero
	for i, view := range payload.Views {
		if i == primary || !view.Decorated() {
			continue
		}
		code := design.NormalizeCode(view.DecorationCode)
		var productCode string
		switch code {
		case threeD:
			productCode = defaults.ThreeDDecorationCode
		case flat:
			productCode = defaults.FlatDecorationCode
		default:
			tr.Addf("view %s: decoration code %s matches no configured code, contributing zero", view.Code, code)
			continue
		}
		price, ok := e.locationPrice(ctx, productCode, defaults.AuthPriceBookID, view.Code, tr)
		if ok {
			additional = additional.Add(price)
		}
	}

	computed := round2(entry.UnitPrice.Add(override).Add(additional))
	tr.Addf("computed unit price %s at qty %d", computed.StringFixed(2), q)

	return Result{
		ProductID:               product.ID,
		PriceBookEntryID:        entry.ID,
		Mode:                    ModeLookup,
		Quantity:                q,
		BaseUnitPrice:           round2(entry.UnitPrice),
		DecorationOverride:      round2(override),
		AdditionalLocationTotal: round2(additional),
		ComputedUnitPrice:       computed,
		Fingerprint:             Fingerprint(payload.SKU, q, computed),
		Trace:                   tr.Entries(),
	}, nil
}

// frontOverride resolves the lookup-override rule for the 3D decoration on the
// primary view. Every miss on this path is non-fatal and contributes zero.
func (e *Engine) frontOverride(ctx context.Context, garment catalog.Product, defaults catalog.ShopDefaults, tr *Trace) decimal.Decimal {
	decoProduct, err := e.Store.ProductByCode(ctx, defaults.ThreeDDecorationCode)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			tr.Addf("FRONT: 3D decoration product %s not in catalog, contributing zero", defaults.ThreeDDecorationCode)
		} else {
			tr.Addf("FRONT: resolving 3D decoration product failed (%v), contributing zero", err)
		}
		return decimal.Zero
	}
	rules, err := e.Store.DecorationRules(ctx, catalog.RuleFilter{
		ProductID:           garment.ID,
		Kind:                catalog.RuleLookupOverride,
		DecorationProductID: decoProduct.ID,
	})
	if err != nil {
		tr.Addf("FRONT: listing override rules failed (%v), contributing zero", err)
		return decimal.Zero
	}
	rule := firstActiveOverride(rules)
	if rule == nil {
		countResolution("miss")
		tr.Addf("FRONT: no override rule for decoration product %s, contributing zero", decoProduct.Code)
		return decimal.Zero
	}
	countResolution("hit")
	tr.Addf("FRONT: override %s applied from rule %s", rule.OverridePrice.StringFixed(2), rule.ID)
	return rule.OverridePrice
}

// locationPrice resolves the additional-location contribution for a secondary
// view: the decoration product's active entry in the authenticated price book.
func (e *Engine) locationPrice(ctx context.Context, productCode, priceBookID, viewCode string, tr *Trace) (decimal.Decimal, bool) {
	decoProduct, err := e.Store.ProductByCode(ctx, productCode)
	if err != nil {
		tr.Addf("view %s: decoration product %s not resolved, contributing zero", viewCode, productCode)
		return decimal.Zero, false
	}
	entry, err := e.Store.ActivePriceBookEntry(ctx, decoProduct.ID, priceBookID)
	if err != nil {
		tr.Addf("view %s: no active price book entry for %s, contributing zero", viewCode, decoProduct.Code)
		return decimal.Zero, false
	}
	tr.Addf("view %s: adding price book price %s for %s", viewCode, entry.UnitPrice.StringFixed(2), decoProduct.Code)
	return entry.UnitPrice, true
}
