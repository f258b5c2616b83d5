package finance

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/psyhead/clinic/internal/platform/auth"
	"github.com/psyhead/clinic/internal/platform/authz"
)

// RequireAccess blocks the actors the module policy names from every
// finance route. Unlike record-level denials this one is visible: the
// module's existence is not a secret, only its data.
func RequireAccess(policy authz.ModulePolicy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := auth.IdentityFromContext(c.Request().Context())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !policy.Allows(identity) {
				return echo.NewHTTPError(http.StatusForbidden, "access to this module is restricted")
			}
			return next(c)
		}
	}
}
