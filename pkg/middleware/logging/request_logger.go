package loggingmw

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
)

// UserKey is the echo context key the auth filter stores the verified
// username under.
const UserKey = "username"

// RequestLogger puts a request-scoped logger into the request context and
// writes one "request_completed" line per request. Handler errors are rendered
// here, so the logged status is the one the client got.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := base.With(
				"method", req.Method,
				"route", c.Path(),
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
			)
			if rid := requestID(c); rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
			}

			status := c.Response().Status
			attrs := []any{
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"bytes", c.Response().Size,
			}
			if user, ok := c.Get(UserKey).(string); ok && user != "" {
				attrs = append(attrs, "user", user)
			}
			if err != nil {
				if _, reason, known := apperr.Classify(err); known {
					attrs = append(attrs, "reason", reason)
				}
				attrs = append(attrs, "error", err.Error())
			}
			l.Log(c.Request().Context(), levelFor(status), "request_completed", attrs...)
			return nil
		}
	}
}

func requestID(c echo.Context) string {
	if rid := c.Request().Header.Get(echo.HeaderXRequestID); rid != "" {
		return rid
	}
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func levelFor(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
