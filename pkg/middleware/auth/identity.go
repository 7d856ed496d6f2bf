package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
)

const (
	CtxIdentity = "identity"
	CtxUsername = "username"
	CtxUserID   = "user_id"
	CtxRoles    = "roles"
)

// Identity is what a verified access token says about the caller.
type Identity struct {
	Username string
	UserID   string
	Roles    []string
	// Token is the raw bearer value the identity was read from.
	Token string
	// ExpiresIn is the token lifetime left at verification, in seconds.
	ExpiresIn int64
}

func (i *Identity) HasRole(roles ...string) bool {
	if i == nil {
		return false
	}
	for _, r := range roles {
		if slices.Contains(i.Roles, r) {
			return true
		}
	}
	return false
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

func IdentityFromEcho(c echo.Context) (*Identity, bool) {
	if id, ok := c.Get(CtxIdentity).(*Identity); ok && id != nil {
		return id, true
	}
	return IdentityFrom(c.Request().Context())
}

func setIdentity(c echo.Context, id *Identity) {
	c.Set(CtxIdentity, id)
	c.Set(CtxUsername, id.Username)
	c.Set(CtxUserID, id.UserID)
	c.Set(CtxRoles, id.Roles)
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), id)))
}

// RequireRole lets the request through when the verified identity holds at
// least one of the given roles.
func RequireRole(required ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFromEcho(c)
			if !ok {
				return apperr.ErrUnauthorized
			}
			if !id.HasRole(required...) {
				return apperr.ErrForbidden
			}
			return next(c)
		}
	}
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
