package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

func TestMemoryStoreProductByCode(t *testing.T) {
	store := &MemoryStore{Products: []Product{{ID: "p1", Code: "SKU-1"}}}
	ctx := context.Background()

	p, err := store.ProductByCode(ctx, "SKU-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.ID != "p1" {
		t.Fatalf("product id = %s, want p1", p.ID)
	}
	if _, err := store.ProductByCode(ctx, "SKU-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreActivePriceBookEntry(t *testing.T) {
	price := decimal.RequireFromString("10.00")
	store := &MemoryStore{Entries: []PriceBookEntry{
		{ID: "e1", ProductID: "p1", PriceBookID: "PB-A", UnitPrice: price, Active: false},
		{ID: "e2", ProductID: "p1", PriceBookID: "PB-A", UnitPrice: price, Active: true},
		{ID: "e3", ProductID: "p1", PriceBookID: "PB-B", UnitPrice: price, Active: true},
	}}
	ctx := context.Background()

	e, err := store.ActivePriceBookEntry(ctx, "p1", "")
	if err != nil {
		t.Fatalf("any book: %v", err)
	}
	if e.ID != "e2" {
		t.Fatalf("inactive entries must be skipped, got %s", e.ID)
	}

	e, err = store.ActivePriceBookEntry(ctx, "p1", "PB-B")
	if err != nil {
		t.Fatalf("PB-B: %v", err)
	}
	if e.ID != "e3" {
		t.Fatalf("price book filter ignored, got %s", e.ID)
	}

	if _, err := store.ActivePriceBookEntry(ctx, "p1", "PB-C"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreDecorationRulesFilter(t *testing.T) {
	store := &MemoryStore{Rules: []DecorationRule{
		{ID: "r1", ProductID: "p1", Kind: RuleAdditive},
		{ID: "r2", ProductID: "p1", Kind: RuleLookupOverride, DecorationProductID: "d1"},
		{ID: "r3", ProductID: "p2", Kind: RuleAdditive},
	}}
	ctx := context.Background()

	rules, err := store.DecorationRules(ctx, RuleFilter{ProductID: "p1", Kind: RuleAdditive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "r1" {
		t.Fatalf("filter returned %+v", rules)
	}

	rules, err = store.DecorationRules(ctx, RuleFilter{DecorationProductID: "d1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "r2" {
		t.Fatalf("decoration product filter returned %+v", rules)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	cache := NewCache(client, time.Minute)
	ctx := context.Background()
	want := Product{ID: "p1", Name: "Polo", Code: "SKU-1"}

	ok, err := cache.GetJSON(ctx, "catalog:product:SKU-1", &Product{})
	if err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := cache.SetJSON(ctx, "catalog:product:SKU-1", want); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got Product
	ok, err = cache.GetJSON(ctx, "catalog:product:SKU-1", &got)
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("cached product = %+v, want %+v", got, want)
	}
}

func TestCacheNilClientIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()
	if err := cache.SetJSON(ctx, "k", "v"); err != nil {
		t.Fatalf("nil cache set: %v", err)
	}
	ok, err := cache.GetJSON(ctx, "k", new(string))
	if err != nil || ok {
		t.Fatalf("nil cache get: ok=%v err=%v", ok, err)
	}
}
