package handlers

import (
	"net/http"
	"time"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/api/validate"
	"github.com/baharkarakas/provider-payouts/internal/auth"
	"github.com/baharkarakas/provider-payouts/internal/middleware"
)

type AuthHandler struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthHandler(tm *auth.TokenManager, appEnv string) *AuthHandler {
	return &AuthHandler{TM: tm, AppEnv: appEnv}
}

type tokenReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// Token issues a pair for any user id. Identity lives with the upstream
// auth provider, so this exists for local development only.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h.AppEnv != "dev" {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not available", nil)
		return
	}
	var req tokenReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	if errs := validate.Collect(
		validate.Required("user_id", req.UserID),
		validate.UUID("user_id", req.UserID),
		validate.OneOf("role", req.Role, middleware.RoleClient, middleware.RoleProvider, middleware.RoleAdmin),
	); errs != nil {
		writeErr(w, r, errs)
		return
	}
	h.issue(w, req.UserID, req.Role)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	if err := httpx.DecodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "refresh_token required", nil)
		return
	}
	claims, err := h.TM.ParseRefresh(req.RefreshToken)
	if err != nil {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		return
	}
	h.issue(w, claims.UserID, claims.Role)
}

func (h *AuthHandler) issue(w http.ResponseWriter, userID, role string) {
	pair, err := h.TM.GeneratePair(userID, role)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "token generation failed", nil)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResp{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		ExpiresIn:    int64(time.Until(pair.AccessExp).Truncate(time.Second).Seconds()),
	})
}
