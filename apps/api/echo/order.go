package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/order"
	"github.com/innoaccess/backend/core/user"
)

type orderApi struct {
	deps ServerDeps
}

func registerOrderAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := orderApi{deps: deps}

	g.POST("/courses/:id/checkout", api.checkout, jwt, capabilityMiddleware(user.CapEnroll))

	// gateway webhook; authenticated by payload signature, not JWT
	g.POST("/payments/notify", api.notify)
}

// Handlers

func (api *orderApi) checkout(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	res, err := api.deps.CheckoutSvc.Checkout(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, res)
}

func (api *orderApi) notify(ctx echo.Context) error {
	signature := ctx.QueryParam("signature")

	var n order.Notification
	if err := ctx.Bind(&n); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, order.ErrMalformedPayload.Error())
	}

	res, err := api.deps.Reconciler.Reconcile(ctx.Request().Context(), n, signature)
	if err != nil {
		switch errors.Cause(err) {
		case order.ErrAuthenticationFailed:
			return echo.NewHTTPError(http.StatusForbidden, err.Error())
		case order.ErrMalformedPayload:
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case order.ErrOrderNotFound:
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return errors.Wrap(err, "reconciling payment notification")
	}

	// the gateway retries on any non-2xx; redeliveries of a settled order
	// must read as success
	return ctx.JSON(http.StatusOK, NotifyResponse{
		Status:           string(res.Order.Status),
		AlreadyProcessed: res.AlreadyProcessed,
	})
}

type NotifyResponse struct {
	Status           string `json:"status"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
}
