package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Verifier    authmw.TokenVerifier
	Ready       map[string]httpx.Check
}

// PublicRoutes are reachable without a bearer token.
var PublicRoutes = []string{
	"GET /health/live",
	"GET /health/ready",
	"POST /auth/register",
	"POST /auth/login",
	"POST /auth/refresh",
}

func Register(e *echo.Echo, d *Deps) {
	e.Use(authmw.Filter(authmw.FilterConfig{
		Verifier: d.Verifier,
		Public:   PublicRoutes,
	}))

	e.GET("/health/live", httpx.Live)
	e.GET("/health/ready", httpx.Ready(d.Ready))

	e.POST("/auth/register", d.AuthHandler.Register)
	e.POST("/auth/login", d.AuthHandler.Login)
	e.POST("/auth/refresh", d.AuthHandler.Refresh)
	e.POST("/auth/logout", d.AuthHandler.LogOut)
}
