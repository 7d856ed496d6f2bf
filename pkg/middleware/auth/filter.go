package middleware

import (
	"context"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
)

type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}

type FilterConfig struct {
	Verifier TokenVerifier
	// Public lists the routes reachable without a token, as "METHOD /path".
	// A trailing "/*" matches any path under the prefix.
	Public []string
}

// Filter authenticates every request that is not on the public list.
// Missing, revoked, forged, expired and unverifiable tokens all produce the
// same ErrUnauthorized.
func Filter(cfg FilterConfig) echo.MiddlewareFunc {
	public := parseRoutes(cfg.Public)

	return echojwt.WithConfig(echojwt.Config{
		Skipper: func(c echo.Context) bool {
			return public.match(c.Request().Method, c.Request().URL.Path)
		},
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ContextKey:  CtxIdentity,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return cfg.Verifier.Verify(c.Request().Context(), auth)
		},
		SuccessHandler: func(c echo.Context) {
			if id, ok := c.Get(CtxIdentity).(*Identity); ok {
				setIdentity(c, id)
			}
		},
		ErrorHandler: func(c echo.Context, err error) error {
			logging.FromContext(c.Request().Context()).Debug("unauthenticated", "error", err.Error())
			return apperr.ErrUnauthorized
		},
	})
}

type route struct {
	method string
	path   string
	prefix bool
}

type routes []route

func parseRoutes(specs []string) routes {
	out := make(routes, 0, len(specs))
	for _, s := range specs {
		method, path, ok := strings.Cut(strings.TrimSpace(s), " ")
		if !ok {
			continue
		}
		r := route{method: strings.ToUpper(method), path: strings.TrimSpace(path)}
		if strings.HasSuffix(r.path, "/*") {
			r.prefix = true
			r.path = strings.TrimSuffix(r.path, "*")
		}
		out = append(out, r)
	}
	return out
}

func (rs routes) match(method, path string) bool {
	for _, r := range rs {
		if r.method != method && r.method != "*" {
			continue
		}
		if r.prefix && strings.HasPrefix(path, r.path) {
			return true
		}
		if !r.prefix && r.path == path {
			return true
		}
	}
	return false
}
