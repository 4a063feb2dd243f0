package pricing

import "errors"

// ErrProductNotFound is returned when the sku, or a decoration product needed
// for the base price path, does not exist in the catalog. Fatal for the call.
var ErrProductNotFound = errors.New("product not found")

// ErrPriceNotFound is returned when no active price book entry exists for a
// structurally required (product, price book) pair. Fatal for the call.
var ErrPriceNotFound = errors.New("price not found")
