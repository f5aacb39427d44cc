package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/baharkarakas/provider-payouts/internal/api/httpx"
	"github.com/baharkarakas/provider-payouts/internal/auth"
)

type AuthMiddleware struct {
	TM     *auth.TokenManager
	AppEnv string
}

func NewAuthMiddleware(tm *auth.TokenManager, appEnv string) *AuthMiddleware {
	return &AuthMiddleware{TM: tm, AppEnv: appEnv}
}

// Auth accepts "Bearer <access JWT>". In dev, "Bearer dev-<role>-<uuid>" is
// also accepted so local clients can skip the token endpoint.
func (m *AuthMiddleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ah := r.Header.Get("Authorization")
		if len(ah) < 7 || !strings.EqualFold(ah[:7], "bearer ") {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token", nil)
			return
		}
		token := strings.TrimSpace(ah[7:])

		if m.AppEnv == "dev" && strings.HasPrefix(token, "dev-") {
			if u, ok := parseDevToken(token); ok {
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
				return
			}
		}

		claims, err := m.TM.ParseAccess(token)
		if err != nil {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid access token", nil)
			return
		}
		ctx := WithUser(r.Context(), UserCtx{UserID: claims.UserID, Role: claims.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseDevToken(tok string) (UserCtx, bool) {
	parts := strings.SplitN(strings.TrimPrefix(tok, "dev-"), "-", 2)
	if len(parts) != 2 {
		return UserCtx{}, false
	}
	if _, err := uuid.Parse(parts[1]); err != nil {
		return UserCtx{}, false
	}
	switch parts[0] {
	case RoleClient, RoleProvider, RoleAdmin:
		return UserCtx{UserID: parts[1], Role: parts[0]}, true
	}
	return UserCtx{}, false
}
