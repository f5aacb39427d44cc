package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
)

// Recover turns a handler panic into a 500 carrying the request id, so a
// support ticket can be matched to the logged stack.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			reqID := RequestIDFrom(r.Context())
			slog.ErrorContext(r.Context(), "panic",
				"err", rec, "method", r.Method, "path", r.URL.Path,
				"request_id", reqID, "stack", string(debug.Stack()))
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error",
				map[string]string{"request_id": reqID})
		}()
		next.ServeHTTP(w, r)
	})
}
