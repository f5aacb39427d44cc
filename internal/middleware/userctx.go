package middleware

import "context"

type userKey struct{}

// UserCtx is the authenticated caller. Identity comes from the access token
// or, in dev, from a dev-<role>-<id> bearer.
type UserCtx struct {
	UserID string
	Role   string
}

func (u UserCtx) Authenticated() bool { return u.UserID != "" }

func (u UserCtx) IsAdmin() bool { return u.Role == RoleAdmin }

// Owns reports whether the caller may act on a resource owned by userID.
func (u UserCtx) Owns(userID string) bool {
	return u.IsAdmin() || (u.Authenticated() && u.UserID == userID)
}

func WithUser(ctx context.Context, u UserCtx) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

func FromCtx(ctx context.Context) UserCtx {
	u, _ := ctx.Value(userKey{}).(UserCtx)
	return u
}
