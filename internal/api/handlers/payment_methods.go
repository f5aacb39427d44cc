package handlers

import (
	"net/http"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

type PaymentMethodHandler struct {
	svc PaymentMethods
}

func NewPaymentMethodHandler(s PaymentMethods) *PaymentMethodHandler {
	return &PaymentMethodHandler{svc: s}
}

func (h *PaymentMethodHandler) List(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	list, err := h.svc.List(r.Context(), u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
}

func (h *PaymentMethodHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.NewPaymentMethod
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	u := middleware.FromCtx(r.Context())
	pm, err := h.svc.Create(r.Context(), u.UserID, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, pm)
}

// Update edits label and details. New details clear the verified flag.
func (h *PaymentMethodHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in services.UpdatePaymentMethod
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	u := middleware.FromCtx(r.Context())
	pm, err := h.svc.Update(r.Context(), u.UserID, id, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pm)
}

func (h *PaymentMethodHandler) SetDefault(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u := middleware.FromCtx(r.Context())
	if err := h.svc.SetDefault(r.Context(), u.UserID, id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentMethodHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u := middleware.FromCtx(r.Context())
	if err := h.svc.Delete(r.Context(), u.UserID, id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
