package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/gateway/internal/middleware"
	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
)

const RoleAdmin = "ADMIN"

type Deps struct {
	AuthURL  string
	ForumURL string

	Verifier authmw.TokenVerifier
	Ready    map[string]httpx.Check
	Logger   *slog.Logger
}

// PublicRoutes are reachable without a bearer token. Everything else,
// including paths no route matches, goes through the token filter.
var PublicRoutes = []string{
	"GET /health/live",
	"GET /health/ready",
	"POST /api/v1/auth/register",
	"POST /api/v1/auth/login",
	"POST /api/v1/auth/refresh",
}

func Register(e *echo.Echo, d *Deps) error {
	e.Pre(middleware.CanonicalPath(d.Logger))
	for _, m := range middleware.Common(d.Logger) {
		e.Use(m)
	}
	e.Use(authmw.Filter(authmw.FilterConfig{
		Verifier: d.Verifier,
		Public:   PublicRoutes,
	}))

	e.GET("/health/live", httpx.Live)
	e.GET("/health/ready", httpx.Ready(d.Ready))

	authProxy, err := newProxy(d.AuthURL, "/api/v1")
	if err != nil {
		return err
	}

	forumProxy, err := newProxy(d.ForumURL, "")
	if err != nil {
		return err
	}

	e.Any("/api/v1/auth/*", authProxy)
	e.Any("/api/v1/admin/*", forumProxy, authmw.RequireRole(RoleAdmin))
	e.Any("/api/v1/*", forumProxy)

	return nil
}
