package pricing

import (
	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/design"
)

// resolveAdditiveRule returns the first active additive rule matching the view
// code, the normalized decoration code, and the quantity range. Overlapping
// quantity tiers are resolved by first match in store order; the ambiguity is
// recorded on the trace rather than treated as an error, so a catalog data
// problem never blocks pricing. A miss returns nil and is never fatal.
func resolveAdditiveRule(rules []catalog.DecorationRule, viewCode, normCode string, qty int, tr *Trace) *catalog.DecorationRule {
	var match *catalog.DecorationRule
	extra := 0
	for i := range rules {
		r := &rules[i]
		if !r.Active || r.Kind != catalog.RuleAdditive {
			continue
		}
		if r.ViewCode != viewCode {
			continue
		}
		if design.NormalizeCode(r.DecorationCode) != normCode {
			continue
		}
		if !r.AppliesToQty(qty) {
			continue
		}
		if match == nil {
			match = r
		} else {
			extra++
		}
	}
	if extra > 0 {
		tr.Addf("view %s: %d overlapping rules matched for %s at qty %d, first match %s wins",
			viewCode, extra+1, normCode, qty, match.ID)
	}
	return match
}

// firstActiveOverride returns the first active lookup-override rule keyed by
// (garment product, decoration product), or nil.
func firstActiveOverride(rules []catalog.DecorationRule) *catalog.DecorationRule {
	for i := range rules {
		r := &rules[i]
		if r.Active && r.Kind == catalog.RuleLookupOverride {
			return r
		}
	}
	return nil
}
