package handlers

import (
	"net/http"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/api/validate"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
	"github.com/baharkarakas/provider-payouts/internal/models"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

type RefundHandler struct {
	svc Refunds
}

func NewRefundHandler(s Refunds) *RefundHandler {
	return &RefundHandler{svc: s}
}

func (h *RefundHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.NewRefund
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	u := middleware.FromCtx(r.Context())
	rf, err := h.svc.Create(r.Context(), u.UserID, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, rf)
}

// List returns the caller's refunds, or one order's refunds when order_id is
// given. Non-admins only see requests they filed.
func (h *RefundHandler) List(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		list, err := h.svc.ListMine(r.Context(), u.UserID,
			httpx.QueryInt(r, "limit", 20), httpx.QueryInt(r, "offset", 0))
		if err != nil {
			writeErr(w, r, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
		return
	}

	if errs := validate.Collect(validate.UUID("order_id", orderID)); errs != nil {
		writeErr(w, r, errs)
		return
	}
	list, err := h.svc.ListByOrder(r.Context(), orderID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !u.IsAdmin() {
		mine := list[:0]
		for _, rf := range list {
			if u.Owns(rf.RequestedBy) {
				mine = append(mine, rf)
			}
		}
		list = mine
	}
	if list == nil {
		list = []models.RefundRequest{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
}
