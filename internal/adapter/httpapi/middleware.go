package httpapi

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

const apiKeyHeader = "X-Internal-Api-Key"

// InternalAPIKey guards write endpoints with a shared-secret header.
// An empty expected key disables the check (logged once per request),
// matching the permissive development default.
func InternalAPIKey(expected string, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if expected == "" {
				logger.Warn("internal_api_key_not_configured",
					slog.String("path", ctx.Path()))
				return next(ctx)
			}

			provided := ctx.Request().Header.Get(apiKeyHeader)
			if provided == "" {
				return ctx.JSON(http.StatusUnauthorized, errorBody("missing "+apiKeyHeader+" header"))
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
				logger.Warn("invalid_internal_api_key", slog.String("path", ctx.Path()))
				return ctx.JSON(http.StatusUnauthorized, errorBody("invalid "+apiKeyHeader))
			}
			return next(ctx)
		}
	}
}
