package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGStore implements Store against postgres. Product lookups go through the
// optional redis cache; price book entries and rules are read directly so the
// engine always prices against current catalog data.
type PGStore struct {
	Pool  *pgxpool.Pool
	Cache *Cache
}

func productCacheKey(code string) string {
	return "catalog:product:" + code
}

// ProductByCode resolves a product by its unique code.
func (s *PGStore) ProductByCode(ctx context.Context, code string) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog: store not configured")
	}
	var cached Product
	if ok, err := s.Cache.GetJSON(ctx, productCacheKey(code), &cached); err == nil && ok {
		return cached, nil
	}
	var p Product
	err := s.Pool.QueryRow(ctx,
		`SELECT id, name, code FROM products WHERE code = $1`,
		code,
	).Scan(&p.ID, &p.Name, &p.Code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, fmt.Errorf("query product by code: %w", err)
	}
	_ = s.Cache.SetJSON(ctx, productCacheKey(code), p)
	return p, nil
}

// ActivePriceBookEntry returns the active entry for (product, price book).
// An empty priceBookID matches any price book.
func (s *PGStore) ActivePriceBookEntry(ctx context.Context, productID, priceBookID string) (PriceBookEntry, error) {
	if s == nil || s.Pool == nil {
		return PriceBookEntry{}, errors.New("catalog: store not configured")
	}
	var (
		e     PriceBookEntry
		price string
	)
	err := s.Pool.QueryRow(ctx,
		`SELECT id, product_id, price_book_id, unit_price::text, currency, active
		   FROM price_book_entries
		  WHERE product_id = $1
		    AND active
		    AND ($2 = '' OR price_book_id = $2)
		  ORDER BY price_book_id
		  LIMIT 1`,
		productID, priceBookID,
	).Scan(&e.ID, &e.ProductID, &e.PriceBookID, &price, &e.Currency, &e.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PriceBookEntry{}, ErrNotFound
		}
		return PriceBookEntry{}, fmt.Errorf("query price book entry: %w", err)
	}
	if e.UnitPrice, err = decimal.NewFromString(price); err != nil {
		return PriceBookEntry{}, fmt.Errorf("parse unit price: %w", err)
	}
	return e, nil
}

// DecorationRules lists rules matching the filter ordered by position. The
// position column fixes the first-match order used during resolution.
func (s *PGStore) DecorationRules(ctx context.Context, f RuleFilter) ([]DecorationRule, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog: store not configured")
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT id, product_id, kind, active,
		        decoration_code, view_code, min_qty, max_qty,
		        per_unit_add_on::text, per_color_add_on::text, per_stitch_add_on::text, setup_fee::text,
		        COALESCE(decoration_product_id::text, ''), override_price::text
		   FROM decoration_rules
		  WHERE ($1 = '' OR product_id::text = $1)
		    AND ($2 = '' OR kind = $2)
		    AND ($3 = '' OR decoration_product_id::text = $3)
		  ORDER BY position, id`,
		f.ProductID, string(f.Kind), f.DecorationProductID,
	)
	if err != nil {
		return nil, fmt.Errorf("query decoration rules: %w", err)
	}
	defer rows.Close()

	var out []DecorationRule
	for rows.Next() {
		var (
			r                        DecorationRule
			kind                     string
			perUnit, override        *string
			perColor, perStitch, fee *string
		)
		if err := rows.Scan(
			&r.ID, &r.ProductID, &kind, &r.Active,
			&r.DecorationCode, &r.ViewCode, &r.MinQty, &r.MaxQty,
			&perUnit, &perColor, &perStitch, &fee,
			&r.DecorationProductID, &override,
		); err != nil {
			return nil, fmt.Errorf("scan decoration rule: %w", err)
		}
		r.Kind = RuleKind(kind)
		if r.PerUnitAddOn, err = parseDecimal(perUnit); err != nil {
			return nil, err
		}
		if r.OverridePrice, err = parseDecimal(override); err != nil {
			return nil, err
		}
		if r.PerColorAddOn, err = parseOptDecimal(perColor); err != nil {
			return nil, err
		}
		if r.PerStitchAddOn, err = parseOptDecimal(perStitch); err != nil {
			return nil, err
		}
		if r.SetupFee, err = parseOptDecimal(fee); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ShopDefaults reads the single shop configuration row.
func (s *PGStore) ShopDefaults(ctx context.Context) (ShopDefaults, error) {
	if s == nil || s.Pool == nil {
		return ShopDefaults{}, errors.New("catalog: store not configured")
	}
	var d ShopDefaults
	err := s.Pool.QueryRow(ctx,
		`SELECT auth_price_book_id, flat_decoration_code, threed_decoration_code
		   FROM shop_defaults LIMIT 1`,
	).Scan(&d.AuthPriceBookID, &d.FlatDecorationCode, &d.ThreeDDecorationCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ShopDefaults{}, ErrNotFound
		}
		return ShopDefaults{}, fmt.Errorf("query shop defaults: %w", err)
	}
	return d, nil
}

func parseDecimal(raw *string) (decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse decimal %q: %w", *raw, err)
	}
	return d, nil
}

func parseOptDecimal(raw *string) (*decimal.Decimal, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", *raw, err)
	}
	return &d, nil
}
