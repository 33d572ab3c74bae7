package echoapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type cronApi struct {
	deps ServerDeps
}

func registerCronAPI(g *echo.Group, deps ServerDeps) {
	api := cronApi{deps: deps}

	cg := g.Group("/workshops", api.cronAuthMiddleware)
	cg.GET("/remind", api.remind)
}

// cronAuthMiddleware authenticates the external scheduler via a shared
// bearer secret.
func (api *cronApi) cronAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		secret := api.deps.Conf.CronSecret
		if secret == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "scheduler secret not configured")
		}

		header := ctx.Request().Header.Get(echo.HeaderAuthorization)
		token := strings.TrimPrefix(header, "Bearer ")
		if header == token { // no Bearer prefix
			return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid bearer token")
		}
		return next(ctx)
	}
}

// Handlers

func (api *cronApi) remind(ctx echo.Context) error {
	summary, err := api.deps.ReminderSvc.Run(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "running reminder pass")
	}
	return ctx.JSON(http.StatusOK, summary)
}
