package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/api/validate"
	repo "github.com/baharkarakas/provider-payouts/internal/repository"
	"github.com/baharkarakas/provider-payouts/internal/services"
)

// writeErr maps service and repository errors onto HTTP responses.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var we *services.WithdrawalError
	var ve validate.Errs
	switch {
	case errors.As(err, &ve):
		httpx.WriteError(w, http.StatusBadRequest, "validation_failed", "invalid request", ve)
	case errors.As(err, &we):
		switch we.Kind {
		case services.KindPersistenceFailure:
			slog.ErrorContext(r.Context(), "withdrawal persistence", "err", err, "path", r.URL.Path)
			httpx.WriteError(w, http.StatusInternalServerError, string(we.Kind), we.Message, nil)
		case services.KindTransportFailure:
			httpx.WriteError(w, http.StatusBadGateway, string(we.Kind), we.Message, nil)
		default:
			httpx.WriteError(w, http.StatusUnprocessableEntity, string(we.Kind), we.Message, nil)
		}
	case errors.Is(err, repo.ErrNotFound), errors.Is(err, services.ErrNotRecipient),
		errors.Is(err, services.ErrRecipientUnknown):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "resource not found", nil)
	case errors.Is(err, repo.ErrInvalidTransition), errors.Is(err, repo.ErrConflict),
		errors.Is(err, services.ErrPaymentMethodInUse):
		httpx.WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidSettings), errors.Is(err, services.ErrInvalidRefund),
		errors.Is(err, services.ErrInvalidPaymentMethod), errors.Is(err, services.ErrInvalidMessage),
		errors.Is(err, services.ErrInvalidDeviceToken), errors.Is(err, services.ErrUnknownKind):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "err", err, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
	}
}

// pathID returns the {id} route parameter or writes a 400 when it is not a uuid.
func pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if errs := validate.Collect(validate.Required("id", id), validate.UUID("id", id)); errs != nil {
		writeErr(w, r, errs)
		return "", false
	}
	return id, true
}

func badRequest(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, "bad_request", err.Error(), nil)
}

// ruleViolation reports whether err is a withdrawal rule the provider can fix.
func ruleViolation(err error) (kind, msg string, ok bool) {
	var we *services.WithdrawalError
	if !errors.As(err, &we) {
		return "", "", false
	}
	switch we.Kind {
	case services.KindPersistenceFailure, services.KindTransportFailure:
		return "", "", false
	}
	return string(we.Kind), we.Message, true
}
