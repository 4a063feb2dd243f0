// Package cart provides persistent guest carts whose decorated line items are
// priced by the pricing engine and kept consistent by a recalculation
// orchestrator.
package cart

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrCartNotFound indicates the cart does not exist or has expired.
var ErrCartNotFound = errors.New("cart not found")

// ErrItemNotFound indicates the line item does not exist in the cart.
var ErrItemNotFound = errors.New("cart item not found")

// Cart is a guest cart. Carts expire rather than being deleted explicitly.
type Cart struct {
	ID        string    `json:"id"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Item is one cart line. ComputedUnitPrice is set only for decorated lines; a
// nil value marks a plain line whose UnitPrice stands as entered. The design
// payload is retained so quantity changes can reprice the line.
type Item struct {
	ID                string           `json:"id"`
	CartID            string           `json:"cartId"`
	ProductID         string           `json:"productId,omitempty"`
	SKU               string           `json:"sku"`
	Name              string           `json:"name,omitempty"`
	Quantity          int              `json:"quantity"`
	UnitPrice         decimal.Decimal  `json:"unitPrice"`
	ComputedUnitPrice *decimal.Decimal `json:"computedUnitPrice,omitempty"`
	Fingerprint       string           `json:"pricingFingerprint,omitempty"`
	TotalLineAmount   decimal.Decimal  `json:"totalLineAmount"`
	DesignPayload     json.RawMessage  `json:"designPayload,omitempty"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

// Decorated reports whether the line carries an engine-computed price.
func (i Item) Decorated() bool {
	return i.ComputedUnitPrice != nil
}
