// Command seeder loads a demo catalog so the pricing engine can be exercised
// end to end in both modes.
package main

import (
	"context"
	"time"

	"github.com/noah-isme/backend-decor/internal/config"
	"github.com/noah-isme/backend-decor/internal/db"
	"github.com/noah-isme/backend-decor/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "decor-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	statements := []struct {
		desc string
		sql  string
		args []any
	}{
		{"garment polo", `
			INSERT INTO products (id, name, code) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, code = EXCLUDED.code`,
			[]any{"p001", "Performance Polo - Grey", "TMX-1400CT-020-Grey"}},
		{"garment cap", `
			INSERT INTO products (id, name, code) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"p002", "Classic Cap - Navy", "CAP-100-NV"}},
		{"3D decoration product", `
			INSERT INTO products (id, name, code) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"d3d", "3D Embroidery", "3DEMBROIDERY"}},
		{"flat decoration product", `
			INSERT INTO products (id, name, code) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"dflat", "Flat Embroidery", "FLATEMBROIDERY"}},

		{"polo standard price", `
			INSERT INTO price_book_entries (id, product_id, price_book_id, unit_price, currency, active)
			VALUES ($1, $2, $3, $4, 'USD', TRUE)
			ON CONFLICT (product_id, price_book_id) DO UPDATE SET unit_price = EXCLUDED.unit_price`,
			[]any{"pbe001", "p001", "PB-STD", "25.00"}},
		{"cap standard price", `
			INSERT INTO price_book_entries (id, product_id, price_book_id, unit_price, currency, active)
			VALUES ($1, $2, $3, $4, 'USD', TRUE)
			ON CONFLICT (product_id, price_book_id) DO NOTHING`,
			[]any{"pbe002", "p002", "PB-STD", "12.50"}},
		{"polo auth price", `
			INSERT INTO price_book_entries (id, product_id, price_book_id, unit_price, currency, active)
			VALUES ($1, $2, $3, $4, 'USD', TRUE)
			ON CONFLICT (product_id, price_book_id) DO NOTHING`,
			[]any{"pbe101", "p001", "PB-AUTH", "22.00"}},
		{"3D auth price", `
			INSERT INTO price_book_entries (id, product_id, price_book_id, unit_price, currency, active)
			VALUES ($1, $2, $3, $4, 'USD', TRUE)
			ON CONFLICT (product_id, price_book_id) DO NOTHING`,
			[]any{"pbe102", "d3d", "PB-AUTH", "9.50"}},
		{"flat auth price", `
			INSERT INTO price_book_entries (id, product_id, price_book_id, unit_price, currency, active)
			VALUES ($1, $2, $3, $4, 'USD', TRUE)
			ON CONFLICT (product_id, price_book_id) DO NOTHING`,
			[]any{"pbe103", "dflat", "PB-AUTH", "5.00"}},

		{"additive small tier", `
			INSERT INTO decoration_rules
				(id, product_id, kind, active, position, decoration_code, view_code,
				 min_qty, max_qty, per_unit_add_on, per_color_add_on, per_stitch_add_on, setup_fee)
			VALUES ($1, $2, 'additive', TRUE, 10, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"rule001", "p001", "3DEmbroidery", "FRONT", 1, 49, "5.50", "0.50", "0.0001", "50.00"}},
		{"additive volume tier", `
			INSERT INTO decoration_rules
				(id, product_id, kind, active, position, decoration_code, view_code,
				 min_qty, max_qty, per_unit_add_on, per_color_add_on, per_stitch_add_on, setup_fee)
			VALUES ($1, $2, 'additive', TRUE, 20, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"rule002", "p001", "3DEmbroidery", "FRONT", 50, 9999, "4.25", "0.35", "0.00008", "25.00"}},
		{"additive back flat", `
			INSERT INTO decoration_rules
				(id, product_id, kind, active, position, decoration_code, view_code,
				 min_qty, max_qty, per_unit_add_on, setup_fee)
			VALUES ($1, $2, 'additive', TRUE, 30, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"rule003", "p001", "FlatEmbroidery", "BACK", 1, 9999, "3.00", "15.00"}},
		{"lookup override", `
			INSERT INTO decoration_rules
				(id, product_id, kind, active, position, decoration_product_id, override_price)
			VALUES ($1, $2, 'lookup_override', TRUE, 10, $3, $4)
			ON CONFLICT (id) DO NOTHING`,
			[]any{"ov001", "p001", "d3d", "4.50"}},

		{"shop defaults", `
			INSERT INTO shop_defaults (id, auth_price_book_id, flat_decoration_code, threed_decoration_code)
			VALUES (1, $1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET
				auth_price_book_id = EXCLUDED.auth_price_book_id,
				flat_decoration_code = EXCLUDED.flat_decoration_code,
				threed_decoration_code = EXCLUDED.threed_decoration_code,
				updated_at = now()`,
			[]any{"PB-AUTH", "FLATEMBROIDERY", "3DEMBROIDERY"}},
	}

	for _, st := range statements {
		if _, err := pool.Exec(ctx, st.sql, st.args...); err != nil {
			logger.Fatal().Err(err).Str("step", st.desc).Msg("seed")
		}
		logger.Info().Str("step", st.desc).Msg("seeded")
	}
	logger.Info().Msg("catalog seeded")
}
