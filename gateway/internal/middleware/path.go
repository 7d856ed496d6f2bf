package middleware

import (
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
)

// CanonicalPath rejects request paths that path.Clean would change ("." and
// ".." segments, repeated slashes). Install it with e.Pre so routing and role
// guards only see clean paths.
func CanonicalPath(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := c.Request().URL.Path
			if p != "" && !isCanonical(p) {
				logger.Warn("path_rejected", "url", p, "remote_ip", c.RealIP())
				return echo.NewHTTPError(http.StatusBadRequest, "invalid path")
			}
			return next(c)
		}
	}
}

func isCanonical(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned == p
}
