package pricing

import (
	"testing"

	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/design"
)

func TestResolveAdditiveRuleFirstMatchWinsOnOverlap(t *testing.T) {
	rules := []catalog.DecorationRule{
		{ID: "r1", Kind: catalog.RuleAdditive, Active: true, ViewCode: "FRONT", DecorationCode: "3DEmbroidery", MinQty: pint(1), MaxQty: pint(100)},
		{ID: "r2", Kind: catalog.RuleAdditive, Active: true, ViewCode: "FRONT", DecorationCode: "3DEmbroidery", MinQty: pint(50), MaxQty: pint(200)},
	}
	tr := &Trace{}
	got := resolveAdditiveRule(rules, "FRONT", design.NormalizeCode("3D Embroidery"), 60, tr)
	if got == nil || got.ID != "r1" {
		t.Fatalf("expected r1 to win, got %+v", got)
	}
	if !traceContains(tr.Entries(), "overlapping rules") {
		t.Fatalf("expected an overlap trace entry, got %v", tr.Entries())
	}
}

func TestResolveAdditiveRuleRespectsFilters(t *testing.T) {
	rules := []catalog.DecorationRule{
		{ID: "inactive", Kind: catalog.RuleAdditive, ViewCode: "FRONT", DecorationCode: "3DEmbroidery"},
		{ID: "wrongview", Kind: catalog.RuleAdditive, Active: true, ViewCode: "BACK", DecorationCode: "3DEmbroidery"},
		{ID: "wrongcode", Kind: catalog.RuleAdditive, Active: true, ViewCode: "FRONT", DecorationCode: "FlatEmbroidery"},
		{ID: "wrongqty", Kind: catalog.RuleAdditive, Active: true, ViewCode: "FRONT", DecorationCode: "3DEmbroidery", MinQty: pint(100)},
		{ID: "override", Kind: catalog.RuleLookupOverride, Active: true},
		{ID: "ok", Kind: catalog.RuleAdditive, Active: true, ViewCode: "FRONT", DecorationCode: "3d embroidery"},
	}
	tr := &Trace{}
	got := resolveAdditiveRule(rules, "FRONT", "3DEMBROIDERY", 10, tr)
	if got == nil || got.ID != "ok" {
		t.Fatalf("expected rule ok, got %+v", got)
	}
	if len(tr.Entries()) != 0 {
		t.Fatalf("single match must not record an overlap entry: %v", tr.Entries())
	}
}

func TestResolveAdditiveRuleMissReturnsNil(t *testing.T) {
	if got := resolveAdditiveRule(nil, "FRONT", "3DEMBROIDERY", 1, &Trace{}); got != nil {
		t.Fatalf("expected nil on empty rule set, got %+v", got)
	}
}

func TestAppliesToQtyBounds(t *testing.T) {
	r := catalog.DecorationRule{MinQty: pint(1), MaxQty: pint(49)}
	for qty, want := range map[int]bool{0: false, 1: true, 49: true, 50: false} {
		if got := r.AppliesToQty(qty); got != want {
			t.Errorf("AppliesToQty(%d) = %v, want %v", qty, got, want)
		}
	}
	open := catalog.DecorationRule{MinQty: pint(50)}
	if !open.AppliesToQty(1000000) {
		t.Error("nil MaxQty must be unbounded above")
	}
}
