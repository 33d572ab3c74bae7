package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core/user"
)

// capabilityMiddleware guards a route behind a capability. Claims carry the
// user's roles; the capability table decides.
func capabilityMiddleware(cap user.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.AnyRoleHasCapability(claims.Roles, cap) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
