package pricing

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/shopspring/decimal"
)

// Fingerprint derives a short deterministic token for a priced configuration.
// It is a pure function of (sku, quantity, computed unit price): the same
// inputs always yield the same token and changing any input changes it. The
// token is an integrity/display aid for line-item records, not a cryptographic
// commitment.
func Fingerprint(sku string, quantity int, unitPrice decimal.Decimal) string {
	raw := fmt.Sprintf("%s|%d|%s", sku, quantity, unitPrice.StringFixed(2))
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:8])
}
