package handlers

import (
	"net/http"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/api/validate"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

type MessageHandler struct {
	svc Messages
}

func NewMessageHandler(s Messages) *MessageHandler {
	return &MessageHandler{svc: s}
}

type trackReq struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content"`
}

// Track schedules the delayed email for a message the caller just sent.
func (h *MessageHandler) Track(w http.ResponseWriter, r *http.Request) {
	var req trackReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if errs := validate.Collect(
		validate.Required("conversation_id", req.ConversationID),
		validate.Required("message_id", req.MessageID),
		validate.Required("recipient_id", req.RecipientID),
		validate.UUID("conversation_id", req.ConversationID),
		validate.UUID("message_id", req.MessageID),
		validate.UUID("recipient_id", req.RecipientID),
	); errs != nil {
		writeErr(w, r, errs)
		return
	}
	u := middleware.FromCtx(r.Context())
	p, err := h.svc.Track(r.Context(), services.TrackedMessage{
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		SenderID:       u.UserID,
		RecipientID:    req.RecipientID,
		Content:        req.Content,
	})
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusAccepted, p)
}

type cancelReq struct {
	ConversationID string `json:"conversation_id"`
}

// Cancel drops pending emails addressed to the caller in a conversation,
// called when they open it or reply.
func (h *MessageHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if errs := validate.Collect(
		validate.Required("conversation_id", req.ConversationID),
		validate.UUID("conversation_id", req.ConversationID),
	); errs != nil {
		writeErr(w, r, errs)
		return
	}
	u := middleware.FromCtx(r.Context())
	n, err := h.svc.CancelPending(r.Context(), req.ConversationID, u.UserID)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"cancelled": n})
}
