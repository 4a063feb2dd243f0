package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGRepo is the Postgres-backed Repo. Monetary columns are numeric and travel
// as text to keep decimal precision intact.
type PGRepo struct {
	Pool *pgxpool.Pool
}

func (r *PGRepo) CreateCart(ctx context.Context, c Cart) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO carts (id, currency, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Currency, c.CreatedAt, c.UpdatedAt, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}
	return nil
}

func (r *PGRepo) CartByID(ctx context.Context, id string) (Cart, error) {
	var c Cart
	err := r.Pool.QueryRow(ctx, `
		SELECT id, currency, created_at, updated_at, expires_at
		FROM carts WHERE id = $1`, id).
		Scan(&c.ID, &c.Currency, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrCartNotFound
	}
	if err != nil {
		return Cart{}, fmt.Errorf("select cart: %w", err)
	}
	return c, nil
}

func (r *PGRepo) TouchCart(ctx context.Context, c Cart) error {
	tag, err := r.Pool.Exec(ctx, `UPDATE carts SET updated_at = $2 WHERE id = $1`, c.ID, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *PGRepo) LiveCartIDs(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id FROM carts WHERE expires_at > $1 ORDER BY created_at`, now)
	if err != nil {
		return nil, fmt.Errorf("select live carts: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const itemColumns = `
	id, cart_id, product_id, sku, name, quantity,
	unit_price::text, computed_unit_price::text, fingerprint,
	total_line_amount::text, design_payload, created_at, updated_at`

func (r *PGRepo) Items(ctx context.Context, cartID string) ([]Item, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items WHERE cart_id = $1
		ORDER BY created_at, id`, cartID)
	if err != nil {
		return nil, fmt.Errorf("select cart items: %w", err)
	}
	defer rows.Close()

	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *PGRepo) ItemByID(ctx context.Context, cartID, itemID string) (Item, error) {
	row := r.Pool.QueryRow(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	it, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, ErrItemNotFound
	}
	return it, err
}

func (r *PGRepo) InsertItem(ctx context.Context, it Item) error {
	_, err := r.Pool.Exec(ctx, `
		INSERT INTO cart_items (
			id, cart_id, product_id, sku, name, quantity,
			unit_price, computed_unit_price, fingerprint,
			total_line_amount, design_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric, $9, $10::numeric, $11, $12, $13)`,
		it.ID, it.CartID, it.ProductID, it.SKU, it.Name, it.Quantity,
		it.UnitPrice.String(), optDecimalArg(it.ComputedUnitPrice), it.Fingerprint,
		it.TotalLineAmount.String(), payloadArg(it.DesignPayload), it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert cart item: %w", err)
	}
	return nil
}

func (r *PGRepo) UpdateItem(ctx context.Context, it Item) error {
	tag, err := r.Pool.Exec(ctx, `
		UPDATE cart_items SET
			product_id = $3,
			quantity = $4,
			unit_price = $5::numeric,
			computed_unit_price = $6::numeric,
			fingerprint = $7,
			total_line_amount = $8::numeric,
			updated_at = $9
		WHERE cart_id = $1 AND id = $2`,
		it.CartID, it.ID, it.ProductID, it.Quantity,
		it.UnitPrice.String(), optDecimalArg(it.ComputedUnitPrice), it.Fingerprint,
		it.TotalLineAmount.String(), it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PGRepo) DeleteItem(ctx context.Context, cartID, itemID string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`, cartID, itemID)
	if err != nil {
		return fmt.Errorf("delete cart item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *PGRepo) SaveItems(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`
			UPDATE cart_items SET
				product_id = $3,
				quantity = $4,
				unit_price = $5::numeric,
				computed_unit_price = $6::numeric,
				fingerprint = $7,
				total_line_amount = $8::numeric,
				updated_at = $9
			WHERE cart_id = $1 AND id = $2`,
			it.CartID, it.ID, it.ProductID, it.Quantity,
			it.UnitPrice.String(), optDecimalArg(it.ComputedUnitPrice), it.Fingerprint,
			it.TotalLineAmount.String(), it.UpdatedAt)
	}
	results := r.Pool.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("save cart items: %w", err)
		}
	}
	return nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		it        Item
		productID *string
		name      *string
		unit      string
		computed  *string
		fp        *string
		total     string
		payload   []byte
	)
	err := row.Scan(&it.ID, &it.CartID, &productID, &it.SKU, &name, &it.Quantity,
		&unit, &computed, &fp, &total, &payload, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	if productID != nil {
		it.ProductID = *productID
	}
	if name != nil {
		it.Name = *name
	}
	if fp != nil {
		it.Fingerprint = *fp
	}
	if it.UnitPrice, err = decimal.NewFromString(unit); err != nil {
		return Item{}, fmt.Errorf("parse unit price: %w", err)
	}
	if it.TotalLineAmount, err = decimal.NewFromString(total); err != nil {
		return Item{}, fmt.Errorf("parse line total: %w", err)
	}
	if computed != nil {
		v, err := decimal.NewFromString(*computed)
		if err != nil {
			return Item{}, fmt.Errorf("parse computed price: %w", err)
		}
		it.ComputedUnitPrice = &v
	}
	it.DesignPayload = payload
	return it, nil
}

func optDecimalArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func payloadArg(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
