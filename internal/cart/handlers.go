package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-decor/internal/common"
	"github.com/noah-isme/backend-decor/internal/design"
	"github.com/noah-isme/backend-decor/internal/pricing"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// Create opens a new guest cart.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart service not configured", nil)
		return
	}
	c, err := h.Svc.EnsureCart(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, c)
}

// Get returns the cart with its items and subtotal.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, items, err := h.Svc.GetCart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"cart":     c,
		"items":    items,
		"subtotal": Subtotal(items),
	})
}

// AddItemRequest is the body of POST /api/v1/carts/{id}/items.
type AddItemRequest struct {
	SKU        string        `json:"sku" validate:"required"`
	Name       string        `json:"name"`
	DesignID   int64         `json:"designId"`
	Quantity   int           `json:"quantity" validate:"gte=0"`
	DesignData []design.View `json:"designData" validate:"required,min=1"`
}

// AddItem prices a decorated line and appends it to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item request", err.Error())
			return
		}
	}
	payload := design.Payload{SKU: req.SKU, DesignID: req.DesignID, Views: req.DesignData}
	it, err := h.Svc.AddDecoratedItem(r.Context(), chi.URLParam(r, "id"), payload, req.Quantity, req.Name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusCreated, it)
}

// UpdateItem changes a line's quantity and reprices it.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity" validate:"gte=1"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "quantity must be at least 1", nil)
			return
		}
	}
	it, err := h.Svc.UpdateItemQuantity(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, it)
}

// RemoveItem deletes a line.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemID")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Recalculate re-runs the orchestrator over the whole cart.
func (h *Handler) Recalculate(w http.ResponseWriter, r *http.Request) {
	items, err := h.Svc.Recalculate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSONData(w, http.StatusOK, map[string]any{
		"items":    items,
		"subtotal": Subtotal(items),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, pricing.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, pricing.ErrPriceNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRICE_NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
