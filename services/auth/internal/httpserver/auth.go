package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/pkg/httpx"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
	authmw "github.com/Skotchmaster/forum_auth/pkg/middleware/auth"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/service"
	"github.com/Skotchmaster/forum_auth/services/auth/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	userID, err := h.Svc.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusCreated, "user registered", transport.RegisterResponse{UserID: userID})
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, "login successful", toTokenResponse(pair))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req transport.RefreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, "token refreshed", toTokenResponse(pair))
}

// LogOut expects the filter to have verified the bearer token already.
func (h *AuthHTTP) LogOut(c echo.Context) error {
	ctx := c.Request().Context()

	id, ok := authmw.IdentityFromEcho(c)
	if !ok || id.Token == "" {
		return apperr.ErrUnauthorized
	}

	if err := h.Svc.Logout(ctx, id.Token); err != nil {
		return err
	}

	return httpx.OK(c, http.StatusOK, "logged out", nil)
}

func toTokenResponse(p *service.TokenPair) transport.TokenResponse {
	return transport.TokenResponse{
		AccessToken:                  p.AccessToken,
		AccessTokenExpiresInSeconds:  p.AccessExpiresIn,
		RefreshToken:                 p.RefreshToken,
		RefreshTokenExpiresInSeconds: p.RefreshExpiresIn,
	}
}
