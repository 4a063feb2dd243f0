package pricing

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/backend-decor/internal/common"
	"github.com/noah-isme/backend-decor/internal/design"
	"github.com/noah-isme/backend-decor/internal/obs"
)

// Handler exposes the pricing engine over HTTP.
type Handler struct {
	Engine   *Engine
	Validate *validator.Validate
}

// QuoteRequest is the body of POST /api/v1/pricing/quote.
type QuoteRequest struct {
	SKU        string        `json:"sku" validate:"required"`
	DesignID   int64         `json:"designId"`
	Quantity   int           `json:"quantity"`
	DesignData []design.View `json:"designData"`
}

// Quote prices a design payload without touching any cart.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Engine == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing engine not configured", nil)
		return
	}
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid quote request", err.Error())
			return
		}
	}
	payload := design.Payload{SKU: req.SKU, DesignID: req.DesignID, Views: req.DesignData}

	start := time.Now()
	res, err := h.Engine.CalculateUnitPrice(r.Context(), payload, req.Quantity)
	if obs.PricingDuration != nil {
		obs.PricingDuration.WithLabelValues(string(h.Engine.Mode)).Observe(float64(time.Since(start).Milliseconds()))
	}
	if err != nil {
		if obs.PricingRequestsTotal != nil {
			obs.PricingRequestsTotal.WithLabelValues(string(h.Engine.Mode), "error").Inc()
		}
		h.writeError(w, err)
		return
	}
	if obs.PricingRequestsTotal != nil {
		obs.PricingRequestsTotal.WithLabelValues(string(h.Engine.Mode), "ok").Inc()
	}
	common.JSONData(w, http.StatusOK, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrPriceNotFound):
		common.JSONError(w, http.StatusUnprocessableEntity, "PRICE_NOT_FOUND", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to price design", nil)
	}
}
