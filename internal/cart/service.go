package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-decor/internal/design"
	"github.com/noah-isme/backend-decor/internal/obs"
	"github.com/noah-isme/backend-decor/internal/pricing"
)

// Service coordinates cart persistence, the pricing engine, and the
// recalculation orchestrator.
type Service struct {
	Repo     Repo
	Engine   *pricing.Engine
	Currency string
	TTL      time.Duration
	Clock    func() time.Time
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}

// EnsureCart creates a new guest cart.
func (s *Service) EnsureCart(ctx context.Context) (Cart, error) {
	now := s.now()
	c := Cart{
		ID:        uuid.NewString(),
		Currency:  s.Currency,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.TTL),
	}
	if err := s.Repo.CreateCart(ctx, c); err != nil {
		return Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return c, nil
}

// GetCart loads a live cart and its items. Expired carts read as not found.
func (s *Service) GetCart(ctx context.Context, id string) (Cart, []Item, error) {
	c, err := s.liveCart(ctx, id)
	if err != nil {
		return Cart{}, nil, err
	}
	items, err := s.Repo.Items(ctx, id)
	if err != nil {
		return Cart{}, nil, fmt.Errorf("list cart items: %w", err)
	}
	return c, items, nil
}

// AddDecoratedItem prices the design payload, appends the line, and
// recalculates the cart. The payload is retained on the line so later
// quantity changes reprice against it.
func (s *Service) AddDecoratedItem(ctx context.Context, cartID string, payload design.Payload, quantity int, name string) (Item, error) {
	if _, err := s.liveCart(ctx, cartID); err != nil {
		return Item{}, err
	}
	res, err := s.Engine.CalculateUnitPrice(ctx, payload, quantity)
	if err != nil {
		return Item{}, err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Item{}, fmt.Errorf("encode design payload: %w", err)
	}
	now := s.now()
	computed := res.ComputedUnitPrice
	it := Item{
		ID:                uuid.NewString(),
		CartID:            cartID,
		ProductID:         res.ProductID,
		SKU:               payload.SKU,
		Name:              name,
		Quantity:          res.Quantity,
		UnitPrice:         res.BaseUnitPrice,
		ComputedUnitPrice: &computed,
		Fingerprint:       res.Fingerprint,
		DesignPayload:     raw,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.InsertItem(ctx, it); err != nil {
		return Item{}, fmt.Errorf("insert cart item: %w", err)
	}
	items, err := s.recalculate(ctx, cartID, "item_added")
	if err != nil {
		return Item{}, err
	}
	for _, saved := range items {
		if saved.ID == it.ID {
			return saved, nil
		}
	}
	return it, nil
}

// UpdateItemQuantity changes a line's quantity. Decorated lines are repriced
// from their stored design payload because setup allocation and quantity
// tiers both depend on quantity.
func (s *Service) UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) (Item, error) {
	if _, err := s.liveCart(ctx, cartID); err != nil {
		return Item{}, err
	}
	it, err := s.Repo.ItemByID(ctx, cartID, itemID)
	if err != nil {
		return Item{}, err
	}
	it.Quantity = quantity
	if len(it.DesignPayload) > 0 {
		var payload design.Payload
		if err := json.Unmarshal(it.DesignPayload, &payload); err != nil {
			return Item{}, fmt.Errorf("decode stored design payload: %w", err)
		}
		res, err := s.Engine.CalculateUnitPrice(ctx, payload, quantity)
		if err != nil {
			return Item{}, err
		}
		computed := res.ComputedUnitPrice
		it.Quantity = res.Quantity
		it.ProductID = res.ProductID
		it.UnitPrice = res.BaseUnitPrice
		it.ComputedUnitPrice = &computed
		it.Fingerprint = res.Fingerprint
	}
	it.UpdatedAt = s.now()
	if err := s.Repo.UpdateItem(ctx, it); err != nil {
		return Item{}, err
	}
	items, err := s.recalculate(ctx, cartID, "quantity_changed")
	if err != nil {
		return Item{}, err
	}
	for _, saved := range items {
		if saved.ID == itemID {
			return saved, nil
		}
	}
	return it, nil
}

// RemoveItem deletes a line and recalculates the remainder.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) error {
	if _, err := s.liveCart(ctx, cartID); err != nil {
		return err
	}
	if err := s.Repo.DeleteItem(ctx, cartID, itemID); err != nil {
		return err
	}
	_, err := s.recalculate(ctx, cartID, "item_removed")
	return err
}

// Recalculate runs the orchestrator over the whole cart and persists the
// result. Safe to call repeatedly.
func (s *Service) Recalculate(ctx context.Context, cartID string) ([]Item, error) {
	if _, err := s.liveCart(ctx, cartID); err != nil {
		return nil, err
	}
	return s.recalculate(ctx, cartID, "manual")
}

// RepriceCart reprices every decorated line from its stored payload and then
// recalculates. Used by the admin reprice flow after catalog changes.
func (s *Service) RepriceCart(ctx context.Context, cartID string) ([]Item, error) {
	if _, err := s.liveCart(ctx, cartID); err != nil {
		return nil, err
	}
	items, err := s.Repo.Items(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	now := s.now()
	for i := range items {
		if len(items[i].DesignPayload) == 0 {
			continue
		}
		var payload design.Payload
		if err := json.Unmarshal(items[i].DesignPayload, &payload); err != nil {
			return nil, fmt.Errorf("decode stored design payload: %w", err)
		}
		res, err := s.Engine.CalculateUnitPrice(ctx, payload, items[i].Quantity)
		if err != nil {
			return nil, fmt.Errorf("reprice item %s: %w", items[i].ID, err)
		}
		computed := res.ComputedUnitPrice
		items[i].ProductID = res.ProductID
		items[i].UnitPrice = res.BaseUnitPrice
		items[i].ComputedUnitPrice = &computed
		items[i].Fingerprint = res.Fingerprint
		items[i].UpdatedAt = now
	}
	if err := s.Repo.SaveItems(ctx, items); err != nil {
		return nil, fmt.Errorf("save repriced items: %w", err)
	}
	return s.recalculate(ctx, cartID, "reprice")
}

func (s *Service) recalculate(ctx context.Context, cartID, trigger string) ([]Item, error) {
	items, err := s.Repo.Items(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("list cart items: %w", err)
	}
	now := s.now()
	result := Recalculate(items)
	for i := range result {
		result[i].UpdatedAt = now
	}
	if err := s.Repo.SaveItems(ctx, result); err != nil {
		return nil, fmt.Errorf("save recalculated items: %w", err)
	}
	if c, err := s.Repo.CartByID(ctx, cartID); err == nil {
		c.UpdatedAt = now
		_ = s.Repo.TouchCart(ctx, c)
	}
	if obs.CartRecalculationsTotal != nil {
		obs.CartRecalculationsTotal.WithLabelValues(trigger).Inc()
	}
	return result, nil
}

func (s *Service) liveCart(ctx context.Context, id string) (Cart, error) {
	c, err := s.Repo.CartByID(ctx, id)
	if err != nil {
		return Cart{}, err
	}
	if !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(s.now()) {
		return Cart{}, ErrCartNotFound
	}
	return c, nil
}
