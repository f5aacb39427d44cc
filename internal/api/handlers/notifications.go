package handlers

import (
	"net/http"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
)

type NotificationHandler struct {
	svc Notifications
}

func NewNotificationHandler(s Notifications) *NotificationHandler {
	return &NotificationHandler{svc: s}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	unread := r.URL.Query().Get("unread_only") == "true"
	page, err := h.svc.List(r.Context(), u.UserID,
		httpx.QueryInt(r, "limit", 20), httpx.QueryInt(r, "offset", 0), unread)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, page)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	n, err := h.svc.UnreadCount(r.Context(), u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u := middleware.FromCtx(r.Context())
	if err := h.svc.MarkRead(r.Context(), id, u.UserID); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	u := middleware.FromCtx(r.Context())
	n, err := h.svc.MarkAllRead(r.Context(), u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

type deviceReq struct {
	Token string `json:"token"`
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	u := middleware.FromCtx(r.Context())
	if err := h.svc.RegisterDevice(r.Context(), u.UserID, req.Token); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
