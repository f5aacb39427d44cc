package handlers

import (
	"net/http"
	"strings"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
)

// ProviderHandler serves the provider's own earnings and withdrawals.
type ProviderHandler struct {
	earnings    Earnings
	withdrawals Withdrawals
}

func NewProviderHandler(e Earnings, w Withdrawals) *ProviderHandler {
	return &ProviderHandler{earnings: e, withdrawals: w}
}

func (h *ProviderHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	cur := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("currency")))
	sum, err := h.earnings.Summary(r.Context(), u.UserID, cur)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, sum)
}

func (h *ProviderHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	limit := httpx.QueryInt(r, "limit", 20)
	if limit == 0 || limit > 100 {
		limit = 20
	}
	list, err := h.withdrawals.List(r.Context(), u.UserID, limit, httpx.QueryInt(r, "offset", 0))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": list, "limit": limit})
}

func (h *ProviderHandler) RecentWithdrawals(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	list, err := h.withdrawals.Recent(r.Context(), u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": list})
}

type withdrawalReq struct {
	AmountCents     int64  `json:"amount_cents"`
	PaymentMethodID string `json:"payment_method_id"`
}

type validateResp struct {
	Valid          bool   `json:"valid"`
	Code           string `json:"code,omitempty"`
	Error          string `json:"error,omitempty"`
	AvailableCents int64  `json:"available_cents"`
	FeeCents       int64  `json:"fee_cents"`
	NetCents       int64  `json:"net_cents"`
}

// ValidateWithdrawal runs the submit gates without writing. Rule violations
// come back as 200 with valid=false so the form can show them inline.
func (h *ProviderHandler) ValidateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	u := middleware.FromCtx(r.Context())
	bc, err := h.withdrawals.Check(r.Context(), u.UserID, req.AmountCents, req.PaymentMethodID)
	resp := validateResp{Valid: err == nil, AvailableCents: bc.Available()}
	if err != nil {
		kind, msg, ok := ruleViolation(err)
		if !ok {
			writeErr(w, r, err)
			return
		}
		resp.Code, resp.Error = kind, msg
	} else {
		resp.FeeCents, resp.NetCents = bc.Fee(req.AmountCents)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *ProviderHandler) SubmitWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req withdrawalReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	u := middleware.FromCtx(r.Context())
	res, err := h.withdrawals.Submit(r.Context(), u.UserID, req.AmountCents, req.PaymentMethodID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, res)
}
