package pricing

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-decor/internal/catalog"
	"github.com/noah-isme/backend-decor/internal/design"
	"github.com/noah-isme/backend-decor/internal/obs"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func pdec(t *testing.T, s string) *decimal.Decimal {
	d := dec(t, s)
	return &d
}

func pint(i int) *int { return &i }

func additiveStore(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	return &catalog.MemoryStore{
		Products: []catalog.Product{
			{ID: "p001", Name: "Performance Polo - Grey", Code: "TMX-1400CT-020-Grey"},
			{ID: "p002", Name: "Classic Cap - Navy", Code: "CAP-100-NV"},
		},
		Entries: []catalog.PriceBookEntry{
			{ID: "pbe001", ProductID: "p001", PriceBookID: "PB-STD", UnitPrice: dec(t, "25.00"), Currency: "USD", Active: true},
			{ID: "pbe002", ProductID: "p002", PriceBookID: "PB-STD", UnitPrice: dec(t, "12.50"), Currency: "USD", Active: true},
		},
		Rules: []catalog.DecorationRule{
			{
				ID: "rule001", ProductID: "p001", Kind: catalog.RuleAdditive, Active: true,
				DecorationCode: "3DEmbroidery", ViewCode: "FRONT",
				MinQty: pint(1), MaxQty: pint(49),
				PerUnitAddOn:  dec(t, "5.50"),
				PerColorAddOn: pdec(t, "0.50"), PerStitchAddOn: pdec(t, "0.0001"),
				SetupFee: pdec(t, "50.00"),
			},
			{
				ID: "rule002", ProductID: "p001", Kind: catalog.RuleAdditive, Active: true,
				DecorationCode: "3DEmbroidery", ViewCode: "FRONT",
				MinQty: pint(50), MaxQty: pint(9999),
				PerUnitAddOn:  dec(t, "4.25"),
				PerColorAddOn: pdec(t, "0.35"), PerStitchAddOn: pdec(t, "0.00008"),
				SetupFee: pdec(t, "25.00"),
			},
			{
				ID: "rule003", ProductID: "p001", Kind: catalog.RuleAdditive, Active: true,
				DecorationCode: "FlatEmbroidery", ViewCode: "BACK",
				MinQty: pint(1), MaxQty: pint(9999),
				PerUnitAddOn: dec(t, "3.00"),
				SetupFee:     pdec(t, "15.00"),
			},
		},
	}
}

func frontPayload(stitches, colors int) design.Payload {
	return design.Payload{
		SKU:      "TMX-1400CT-020-Grey",
		DesignID: 1320136,
		Views: []design.View{
			{
				Name: "FRONT", Code: "FRONT", DecorationCode: "3DEMBROIDERY",
				Images: []design.Image{{StitchCount: stitches, Colors: colors}},
			},
		},
	}
}

func TestAdditiveScenario(t *testing.T) {
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}

	res, err := eng.CalculateUnitPrice(context.Background(), frontPayload(5000, 2), 24)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.BaseUnitPrice.StringFixed(2); got != "25.00" {
		t.Fatalf("base price = %s, want 25.00", got)
	}
	// 5.50 + 0.50*2 + 0.0001*5000 = 7.00
	if got := res.DecorationTotal.StringFixed(2); got != "7.00" {
		t.Fatalf("decoration total = %s, want 7.00", got)
	}
	// 50.00 / 24 = 2.0833...
	if got := res.SetupPerUnit.StringFixed(2); got != "2.08" {
		t.Fatalf("setup per unit = %s, want 2.08", got)
	}
	if got := res.ComputedUnitPrice.StringFixed(2); got != "34.08" {
		t.Fatalf("computed unit price = %s, want 34.08", got)
	}
	if res.Quantity != 24 {
		t.Fatalf("quantity = %d, want 24", res.Quantity)
	}
	if res.Fingerprint == "" {
		t.Fatal("expected a fingerprint")
	}
	if len(res.Trace) == 0 {
		t.Fatal("expected trace entries")
	}
}

func TestAdditiveNoImagedViewsYieldsBasePrice(t *testing.T) {
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}
	payload := design.Payload{
		SKU: "TMX-1400CT-020-Grey",
		Views: []design.View{
			{Code: "FRONT", DecorationCode: "3DEMBROIDERY"},
			{Code: "BACK", DecorationCode: "FlatEmbroidery", Texts: []design.Text{{Value: "hello"}}},
		},
	}
	for _, q := range []int{1, 7, 50, 10000} {
		res, err := eng.CalculateUnitPrice(context.Background(), payload, q)
		if err != nil {
			t.Fatalf("qty %d: %v", q, err)
		}
		if !res.ComputedUnitPrice.Equal(res.BaseUnitPrice) {
			t.Fatalf("qty %d: computed %s != base %s for undecorated payload",
				q, res.ComputedUnitPrice, res.BaseUnitPrice)
		}
	}
}

func TestAdditiveTierBoundary(t *testing.T) {
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}
	payload := frontPayload(0, 0)

	// qty 49 selects the [1,49] tier: 25 + 5.50 + 50/49.
	at49, err := eng.CalculateUnitPrice(context.Background(), payload, 49)
	if err != nil {
		t.Fatalf("qty 49: %v", err)
	}
	if got := at49.ComputedUnitPrice.StringFixed(2); got != "31.52" {
		t.Fatalf("qty 49 computed = %s, want 31.52", got)
	}

	// qty 50 selects the [50,9999] tier: 25 + 4.25 + 25/50.
	at50, err := eng.CalculateUnitPrice(context.Background(), payload, 50)
	if err != nil {
		t.Fatalf("qty 50: %v", err)
	}
	if got := at50.ComputedUnitPrice.StringFixed(2); got != "29.75" {
		t.Fatalf("qty 50 computed = %s, want 29.75", got)
	}
}

func TestAdditiveMissingRuleIsNonFatal(t *testing.T) {
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}
	payload := design.Payload{
		SKU: "TMX-1400CT-020-Grey",
		Views: []design.View{
			{Code: "LEFT", DecorationCode: "3DEMBROIDERY", Images: []design.Image{{StitchCount: 100, Colors: 1}}},
		},
	}
	res, err := eng.CalculateUnitPrice(context.Background(), payload, 5)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !res.ComputedUnitPrice.Equal(res.BaseUnitPrice) {
		t.Fatalf("computed %s should equal base %s when no rule matches", res.ComputedUnitPrice, res.BaseUnitPrice)
	}
	if !traceContains(res.Trace, "no rule found") {
		t.Fatalf("trace missing rule-miss entry: %v", res.Trace)
	}
}

func TestUnknownSKUFailsWithProductNotFound(t *testing.T) {
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}
	payload := design.Payload{SKU: "NOPE-404"}
	_, err := eng.CalculateUnitPrice(context.Background(), payload, 1)
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestMissingPriceBookEntryFailsWithPriceNotFound(t *testing.T) {
	store := additiveStore(t)
	store.Entries[0].Active = false
	eng := &Engine{Store: store, Mode: ModeAdditive}
	_, err := eng.CalculateUnitPrice(context.Background(), frontPayload(0, 0), 1)
	if !errors.Is(err, ErrPriceNotFound) {
		t.Fatalf("expected ErrPriceNotFound, got %v", err)
	}
}

func TestQuantityFloor(t *testing.T) {
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}
	for _, q := range []int{0, -3} {
		res, err := eng.CalculateUnitPrice(context.Background(), frontPayload(0, 0), q)
		if err != nil {
			t.Fatalf("qty %d: %v", q, err)
		}
		if res.Quantity != 1 {
			t.Fatalf("qty %d: result quantity = %d, want 1", q, res.Quantity)
		}
	}
}

func TestInactiveRulesAreIgnored(t *testing.T) {
	store := additiveStore(t)
	for i := range store.Rules {
		store.Rules[i].Active = false
	}
	eng := &Engine{Store: store, Mode: ModeAdditive}
	res, err := eng.CalculateUnitPrice(context.Background(), frontPayload(5000, 2), 24)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if !res.ComputedUnitPrice.Equal(res.BaseUnitPrice) {
		t.Fatalf("inactive rules must not contribute: computed %s base %s", res.ComputedUnitPrice, res.BaseUnitPrice)
	}
}

func lookupStore(t *testing.T) *catalog.MemoryStore {
	t.Helper()
	return &catalog.MemoryStore{
		Products: []catalog.Product{
			{ID: "p001", Name: "Performance Polo - Grey", Code: "TMX-1400CT-020-Grey"},
			{ID: "d3d", Name: "3D Embroidery", Code: "3DEMBROIDERY"},
			{ID: "dflat", Name: "Flat Embroidery", Code: "FLATEMBROIDERY"},
		},
		Entries: []catalog.PriceBookEntry{
			{ID: "pbe101", ProductID: "p001", PriceBookID: "PB-AUTH", UnitPrice: dec(t, "22.00"), Currency: "USD", Active: true},
			{ID: "pbe102", ProductID: "d3d", PriceBookID: "PB-AUTH", UnitPrice: dec(t, "9.50"), Currency: "USD", Active: true},
			{ID: "pbe103", ProductID: "dflat", PriceBookID: "PB-AUTH", UnitPrice: dec(t, "5.00"), Currency: "USD", Active: true},
		},
		Rules: []catalog.DecorationRule{
			{
				ID: "ov001", ProductID: "p001", Kind: catalog.RuleLookupOverride, Active: true,
				DecorationProductID: "d3d", OverridePrice: dec(t, "4.50"),
			},
		},
		Defaults: catalog.ShopDefaults{
			AuthPriceBookID:      "PB-AUTH",
			FlatDecorationCode:   "FLATEMBROIDERY",
			ThreeDDecorationCode: "3DEMBROIDERY",
		},
	}
}

func TestLookupOverrideScenario(t *testing.T) {
	eng := &Engine{Store: lookupStore(t), Mode: ModeLookup}
	res, err := eng.CalculateUnitPrice(context.Background(), frontPayload(5000, 2), 1)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.DecorationOverride.StringFixed(2); got != "4.50" {
		t.Fatalf("override = %s, want 4.50", got)
	}
	if got := res.ComputedUnitPrice.StringFixed(2); got != "26.50" {
		t.Fatalf("computed = %s, want 26.50", got)
	}
	if !res.AdditionalLocationTotal.IsZero() {
		t.Fatalf("additional total = %s, want 0", res.AdditionalLocationTotal)
	}
}

func TestLookupAdditionalLocations(t *testing.T) {
	eng := &Engine{Store: lookupStore(t), Mode: ModeLookup}
	payload := frontPayload(5000, 2)
	payload.Views = append(payload.Views, design.View{
		Name: "BACK", Code: "BACK", DecorationCode: "Flat Embroidery",
		Images: []design.Image{{StitchCount: 2000, Colors: 1}},
	})
	res, err := eng.CalculateUnitPrice(context.Background(), payload, 1)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.AdditionalLocationTotal.StringFixed(2); got != "5.00" {
		t.Fatalf("additional total = %s, want 5.00", got)
	}
	// 22.00 + 4.50 + 5.00
	if got := res.ComputedUnitPrice.StringFixed(2); got != "31.50" {
		t.Fatalf("computed = %s, want 31.50", got)
	}
}

func TestLookupMissingOverrideRuleContributesZero(t *testing.T) {
	store := lookupStore(t)
	store.Rules = nil
	eng := &Engine{Store: store, Mode: ModeLookup}
	res, err := eng.CalculateUnitPrice(context.Background(), frontPayload(100, 1), 1)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.ComputedUnitPrice.StringFixed(2); got != "22.00" {
		t.Fatalf("computed = %s, want 22.00", got)
	}
	if !traceContains(res.Trace, "no override rule") {
		t.Fatalf("trace missing override-miss entry: %v", res.Trace)
	}
}

func TestLookupSecondaryEntryMissIsNonFatal(t *testing.T) {
	store := lookupStore(t)
	// drop the flat decoration's price book entry
	store.Entries = store.Entries[:2]
	eng := &Engine{Store: store, Mode: ModeLookup}
	payload := frontPayload(100, 1)
	payload.Views = append(payload.Views, design.View{
		Code: "BACK", DecorationCode: "FLATEMBROIDERY",
		Images: []design.Image{{StitchCount: 10, Colors: 1}},
	})
	res, err := eng.CalculateUnitPrice(context.Background(), payload, 1)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if got := res.ComputedUnitPrice.StringFixed(2); got != "26.50" {
		t.Fatalf("computed = %s, want 26.50", got)
	}
	if !traceContains(res.Trace, "no active price book entry") {
		t.Fatalf("trace missing secondary-miss entry: %v", res.Trace)
	}
}

func TestLookupLaterFrontViewIsAdditionalLocation(t *testing.T) {
	eng := &Engine{Store: lookupStore(t), Mode: ModeLookup}
	payload := frontPayload(100, 1)
	payload.Views = append(payload.Views, design.View{
		Code: "FRONT", DecorationCode: "FLATEMBROIDERY",
		Images: []design.Image{{StitchCount: 10, Colors: 1}},
	})
	res, err := eng.CalculateUnitPrice(context.Background(), payload, 1)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// 22.00 + 4.50 override + 5.00 second FRONT location
	if got := res.ComputedUnitPrice.StringFixed(2); got != "31.50" {
		t.Fatalf("computed = %s, want 31.50", got)
	}
}

func TestRuleResolutionMetricCountsOutcomes(t *testing.T) {
	obs.MustRegisterDomainMetrics("decor_test", prometheus.NewRegistry())
	eng := &Engine{Store: additiveStore(t), Mode: ModeAdditive}

	hits := testutil.ToFloat64(obs.RuleResolutionTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(obs.RuleResolutionTotal.WithLabelValues("miss"))

	if _, err := eng.CalculateUnitPrice(context.Background(), frontPayload(5000, 2), 24); err != nil {
		t.Fatalf("calculate: %v", err)
	}
	payload := frontPayload(100, 1)
	payload.Views[0].DecorationCode = "LASERETCH"
	if _, err := eng.CalculateUnitPrice(context.Background(), payload, 24); err != nil {
		t.Fatalf("calculate: %v", err)
	}

	if got := testutil.ToFloat64(obs.RuleResolutionTotal.WithLabelValues("hit")) - hits; got != 1 {
		t.Fatalf("hit delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(obs.RuleResolutionTotal.WithLabelValues("miss")) - misses; got != 1 {
		t.Fatalf("miss delta = %v, want 1", got)
	}
}

func traceContains(entries []string, needle string) bool {
	for _, e := range entries {
		if strings.Contains(e, needle) {
			return true
		}
	}
	return false
}
