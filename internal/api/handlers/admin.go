package handlers

import (
	"net/http"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/api/validate"
	"github.com/baharkarakas/provider-payouts/internal/models"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

// AdminHandler backs the operator routes: status callbacks from the payout
// rail, manual job triggers and platform settings.
type AdminHandler struct {
	withdrawals Withdrawals
	refunds     Refunds
	methods     PaymentMethods
	dispatcher  Dispatcher
	messages    Messages
	outbox      Drainer
}

func NewAdminHandler(w Withdrawals, rf Refunds, pm PaymentMethods, d Dispatcher, m Messages, o Drainer) *AdminHandler {
	return &AdminHandler{withdrawals: w, refunds: rf, methods: pm, dispatcher: d, messages: m, outbox: o}
}

type statusReq struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
	Notes  string `json:"notes"`
}

func (h *AdminHandler) WithdrawalStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if errs := validate.Collect(validate.OneOf("status", req.Status,
		string(models.WithdrawalProcessing), string(models.WithdrawalCompleted), string(models.WithdrawalFailed),
	)); errs != nil {
		writeErr(w, r, errs)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.withdrawals.UpdateStatus(r.Context(), id, models.WithdrawalStatus(req.Status), req.Reason)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *AdminHandler) RefundStatus(w http.ResponseWriter, r *http.Request) {
	var req statusReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if errs := validate.Collect(validate.OneOf("status", req.Status,
		string(models.RefundApproved), string(models.RefundRejected), string(models.RefundProcessing),
		string(models.RefundCompleted), string(models.RefundFailed),
	)); errs != nil {
		writeErr(w, r, errs)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	out, err := h.refunds.Transition(r.Context(), id, models.RefundStatus(req.Status), req.Notes)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type verifyReq struct {
	Verified bool `json:"verified"`
}

func (h *AdminHandler) VerifyPaymentMethod(w http.ResponseWriter, r *http.Request) {
	var req verifyReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.methods.Verify(r.Context(), id, req.Verified); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Dispatch enqueues a notification event. It is the entry point for the
// order, delivery and dispute flows that live in other services.
func (h *AdminHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var ev services.Event
	if err := httpx.DecodeJSON(w, r, &ev); err != nil {
		badRequest(w, err)
		return
	}
	if ev.UserID == "" && ev.Email == "" {
		writeErr(w, r, validate.Errs{{Field: "user_id", Msg: "user_id or email required"}})
		return
	}
	if errs := validate.Collect(validate.UUID("user_id", ev.UserID)); errs != nil {
		writeErr(w, r, errs)
		return
	}
	if err := h.dispatcher.Dispatch(r.Context(), ev); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AdminHandler) ProcessMessages(w http.ResponseWriter, r *http.Request) {
	st, err := h.messages.ProcessPending(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) DrainOutbox(w http.ResponseWriter, r *http.Request) {
	st, err := h.outbox.Drain(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.withdrawals.Settings(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *AdminHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var st models.PlatformSettings
	if err := httpx.DecodeJSON(w, r, &st); err != nil {
		badRequest(w, err)
		return
	}
	if err := h.withdrawals.SaveSettings(r.Context(), st); err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}
