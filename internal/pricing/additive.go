package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/design"
)

// additivePrice sums attribute-weighted add-ons for every decorated view and
// allocates setup fees evenly across the quantity.
func (e *Engine) additivePrice(ctx context.Context, payload design.Payload, q int, tr *Trace) (Result, error) {
	product, entry, err := e.garmentBase(ctx, payload.SKU, "")
	if err != nil {
		return Result{}, err
	}
	tr.Addf("base price %s for %s from price book entry %s", entry.UnitPrice.StringFixed(2), product.Code, entry.ID)

	rules, err := e.Store.DecorationRules(ctx, catalog.RuleFilter{ProductID: product.ID, Kind: catalog.RuleAdditive})
	if err != nil {
		return Result{}, fmt.Errorf("list decoration rules: %w", err)
	}

	decoTotal := decimal.Zero
	setupTotal := decimal.Zero
	for _, view := range payload.Views {
		if !view.Decorated() {
			continue
		}
		code := design.NormalizeCode(view.DecorationCode)
		rule := resolveAdditiveRule(rules, view.Code, code, q, tr)
		if rule == nil {
			countResolution("miss")
			tr.Addf("view %s: no rule found for %s at qty %d, contributing zero", view.Code, code, q)
			continue
		}
		countResolution("hit")
		perUnit := rule.PerUnitAddOn
		for _, img := range view.Images {
			if rule.PerColorAddOn != nil && img.Colors > 0 {
				perUnit = perUnit.Add(rule.PerColorAddOn.Mul(decimal.NewFromInt(int64(img.Colors))))
			}
			if rule.PerStitchAddOn != nil && img.StitchCount > 0 {
				perUnit = perUnit.Add(rule.PerStitchAddOn.Mul(decimal.NewFromInt(int64(img.StitchCount))))
			}
		}
		decoTotal = decoTotal.Add(perUnit)
		if rule.SetupFee != nil {
			setupTotal = setupTotal.Add(*rule.SetupFee)
			tr.Addf("view %s: rule %s adds %s per unit, setup fee %s", view.Code, rule.ID, perUnit.String(), rule.SetupFee.StringFixed(2))
		} else {
			tr.Addf("view %s: rule %s adds %s per unit", view.Code, rule.ID, perUnit.String())
		}
	}

	qty := decimal.NewFromInt(int64(q))
	allocated := setupTotal.Div(qty)
	computed := round2(entry.UnitPrice.Add(decoTotal).Add(allocated))
	tr.Addf("computed unit price %s at qty %d", computed.StringFixed(2), q)

	return Result{
		ProductID:         product.ID,
		PriceBookEntryID:  entry.ID,
		Mode:              ModeAdditive,
		Quantity:          q,
		BaseUnitPrice:     round2(entry.UnitPrice),
		DecorationTotal:   round2(decoTotal),
		SetupPerUnit:      round2(allocated),
		ComputedUnitPrice: computed,
		Fingerprint:       Fingerprint(payload.SKU, q, computed),
		Trace:             tr.Entries(),
	}, nil
}
