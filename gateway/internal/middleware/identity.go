package middleware

import (
	"net/http"
	"strings"

	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
)

const (
	HeaderUserName  = "X-User-Name"
	HeaderUserID    = "X-User-Id"
	HeaderUserRoles = "X-User-Roles"
)

// ForwardIdentity rewrites the identity headers on an outgoing request.
// Client supplied values are always dropped; verified ones are set from the
// request context.
func ForwardIdentity(req *http.Request) {
	req.Header.Del(HeaderUserName)
	req.Header.Del(HeaderUserID)
	req.Header.Del(HeaderUserRoles)

	id, ok := authmw.IdentityFrom(req.Context())
	if !ok {
		return
	}
	req.Header.Set(HeaderUserName, id.Username)
	req.Header.Set(HeaderUserID, id.UserID)
	req.Header.Set(HeaderUserRoles, strings.Join(id.Roles, ","))
}
