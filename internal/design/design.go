// Package design models the decoration payload submitted by the product
// configurator: a target sku plus an ordered list of views, each carrying a
// decoration code and the image attributes that drive pricing.
package design

import (
	"strings"
	"unicode"
)

// ViewFront is the view code treated as primary for override pricing.
const ViewFront = "FRONT"

// Image is one piece of artwork placed on a view.
type Image struct {
	Src         string `json:"src,omitempty"`
	StitchCount int    `json:"stitchCount"`
	Colors      int    `json:"numberOfColors"`
}

// Text is a text element placed on a view. Text never affects pricing.
type Text struct {
	Value string `json:"value,omitempty"`
	Font  string `json:"font,omitempty"`
}

// View is one printable or embroiderable location on the garment.
type View struct {
	Name           string  `json:"viewName"`
	Code           string  `json:"viewCode"`
	DecorationCode string  `json:"decorationCode"`
	Images         []Image `json:"image"`
	Texts          []Text  `json:"text"`
}

// Decorated reports whether the view carries image content. A view without
// images is never priced regardless of its decoration code.
func (v View) Decorated() bool {
	return len(v.Images) > 0
}

// Payload is the full design description for one garment sku.
type Payload struct {
	SKU      string `json:"sku" validate:"required"`
	DesignID int64  `json:"designId"`
	Views    []View `json:"designData" validate:"dive"`
}

// PrimaryView returns the index of the first FRONT-coded view, or -1 when the
// payload has none. View codes need not be unique; the first FRONT view is
// primary for override pricing and any later ones count as additional
// locations.
func (p Payload) PrimaryView() int {
	for i, v := range p.Views {
		if v.Code == ViewFront {
			return i
		}
	}
	return -1
}

// NormalizeCode canonicalises a decoration code for matching: every
// whitespace rune is stripped and the remainder upper-cased. Idempotent.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
