package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Check func(ctx context.Context) error

func Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Ready runs every check with a shared deadline and answers 503 when any fails.
func Ready(checks map[string]Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			return c.JSON(http.StatusServiceUnavailable, Envelope{
				StatusCode: http.StatusServiceUnavailable,
				Reason:     "ServiceUnavailable",
				Message:    "dependencies unavailable",
				Metadata:   failed,
			})
		}
		return OK(c, http.StatusOK, "ready", nil)
	}
}
