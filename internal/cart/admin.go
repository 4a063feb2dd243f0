package cart

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/noah-isme/backend-decor/internal/common"
	"github.com/noah-isme/backend-decor/internal/queue"
)

// AdminHandler enqueues reprice tasks after catalog changes. It sits behind
// bearer authentication.
type AdminHandler struct {
	Repo     Repo
	Enqueuer queue.Enqueuer
	Clock    func() time.Time
}

// RepriceRequest is the body of POST /api/v1/admin/reprice. An empty cart id
// list targets every live cart.
type RepriceRequest struct {
	CartIDs []string `json:"cartIds"`
	Reason  string   `json:"reason"`
}

// Reprice schedules asynchronous repricing. Duplicate submissions within the
// deduplication window are absorbed by the queue.
func (h *AdminHandler) Reprice(w http.ResponseWriter, r *http.Request) {
	var req RepriceRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reason == "" {
		req.Reason = "catalog_changed"
	}
	ids := req.CartIDs
	if len(ids) == 0 {
		now := time.Now().UTC()
		if h.Clock != nil {
			now = h.Clock()
		}
		live, err := h.Repo.LiveCartIDs(r.Context(), now)
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list carts", nil)
			return
		}
		ids = live
	}
	enqueued := 0
	for _, id := range ids {
		if err := h.Enqueuer.Enqueue(r.Context(), queue.RepriceTask{CartID: id, Reason: req.Reason}, 0); err != nil {
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to enqueue reprice tasks", nil)
			return
		}
		enqueued++
	}
	common.JSONData(w, http.StatusAccepted, map[string]any{
		"enqueued": enqueued,
		"reason":   req.Reason,
	})
}
