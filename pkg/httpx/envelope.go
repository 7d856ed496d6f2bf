package httpx

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/forum_auth/pkg/apperr"
	"github.com/Skotchmaster/forum_auth/pkg/logging"
)

type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
	Metadata   any    `json:"metadata,omitempty"`
}

func OK(c echo.Context, status int, message string, metadata any) error {
	return c.JSON(status, Envelope{
		StatusCode: status,
		Reason:     http.StatusText(status),
		Message:    message,
		Metadata:   metadata,
	})
}

// ErrorHandler renders every error as an Envelope. Unknown errors are logged
// with their cause and reported to the caller as a bare 500.
func ErrorHandler(base *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		env := toEnvelope(err)

		l := logging.FromContext(c.Request().Context())
		if l == slog.Default() && base != nil {
			l = base
		}
		switch {
		case errors.Is(err, apperr.ErrConfiguration):
			l.Error("configuration_error", "alert", true, "error", err.Error())
		case env.StatusCode >= http.StatusInternalServerError:
			l.Error("internal_error", "error", err.Error())
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(env.StatusCode)
		} else {
			werr = c.JSON(env.StatusCode, env)
		}
		if werr != nil {
			l.Error("write_error_response", "error", werr.Error())
		}
	}
}

func toEnvelope(err error) Envelope {
	if status, reason, ok := apperr.Classify(err); ok {
		return Envelope{StatusCode: status, Reason: reason, Message: apperr.Message(err)}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if he.Code < http.StatusInternalServerError {
			if m, ok := he.Message.(string); ok && m != "" {
				msg = m
			} else if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		return Envelope{StatusCode: he.Code, Reason: reasonFor(he.Code), Message: msg}
	}

	return Envelope{
		StatusCode: http.StatusInternalServerError,
		Reason:     "InternalServerError",
		Message:    "internal server error",
	}
}

func reasonFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusUnauthorized:
		return "Unauthorized"
	case http.StatusForbidden:
		return "Forbidden"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusMethodNotAllowed:
		return "MethodNotAllowed"
	case http.StatusConflict:
		return "Conflict"
	}
	if status >= http.StatusInternalServerError {
		return "InternalServerError"
	}
	return http.StatusText(status)
}
