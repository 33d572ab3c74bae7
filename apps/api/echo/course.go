package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/innoaccess/backend/core/course"
	"github.com/innoaccess/backend/core/enroll"
	"github.com/innoaccess/backend/core/user"
)

// NowFunc returns the current instant used to classify session states.
// Mockable in tests.
var NowFunc = time.Now

type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{deps: deps}

	cg := g.Group("/courses")

	// browsing is public
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)

	// authed endpoints
	ag := cg.Group("", jwt)
	ag.POST("", api.create, capabilityMiddleware(user.CapAuthorCourses))
	ag.PUT("/:id", api.update, capabilityMiddleware(user.CapAuthorCourses))
	ag.POST("/:id/publish", api.publish, capabilityMiddleware(user.CapApproveCourses))
	ag.POST("/:id/enroll", api.enroll, capabilityMiddleware(user.CapEnroll))
	ag.POST("/:id/progress", api.progress, capabilityMiddleware(user.CapEnroll))

	mg := g.Group("/me", jwt)
	mg.GET("/enrollments", api.myEnrollments)
}

// courseResponse augments a course with its live-session state, computed at
// response time.
type courseResponse struct {
	course.Course
	SessionState course.SessionState `json:"session_state,omitempty"`
	Countdown    string              `json:"countdown,omitempty"`
}

func newCourseResponse(crs course.Course, now time.Time) courseResponse {
	res := courseResponse{Course: crs}
	if crs.IsLive() {
		if state, err := crs.Session.StateAt(now); err == nil {
			res.SessionState = state
			if state == course.StateUpcoming || state == course.StateStartingSoon {
				res.Countdown = course.Countdown(now, crs.Session.StartTime)
			}
		}
	}
	return res
}

// Handlers

func (api *courseApi) query(ctx echo.Context) error {
	filter := new(course.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []courseResponse{})
	}
	filter.PublishedOnly = true

	courses, err := api.deps.CourseSvc.Query(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}

	now := NowFunc()
	res := make([]courseResponse, 0, len(courses))
	for _, crs := range courses {
		res = append(res, newCourseResponse(crs, now))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) retrieve(ctx echo.Context) error {
	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}
	if !crs.Published {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, newCourseResponse(crs, NowFunc()))
}

func (api *courseApi) create(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	crs, err := api.deps.CourseSvc.Create(ctx.Request().Context(), ctxUsr, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *courseApi) update(ctx echo.Context) error {
	crs, err := api.deps.CourseSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding course by ID")
	}

	// owners edit their own courses; approvers edit any
	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if crs.OwnerID != ctxUsr.ID && !ctxUsr.Can(user.CapApproveCourses) {
		return errHttpForbidden
	}

	var data course.UpdateCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCourse")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	crs, err = api.deps.CourseSvc.Update(ctx.Request().Context(), crs.ID, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) publish(ctx echo.Context) error {
	var data PublishRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PublishRequest")
	}

	crs, err := api.deps.CourseSvc.SetPublished(ctx.Request().Context(), ctx.Param("id"), data.Published)
	if err != nil {
		if errors.Cause(err) == course.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, crs)
}

func (api *courseApi) enroll(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.deps.EnrollSvc.EnrollFree(ctx.Request().Context(), ctxUsr, ctx.Param("id"))
	if err != nil {
		switch errors.Cause(err) {
		case course.ErrNotFound:
			return errHttpNotFound
		case enroll.ErrAlreadyEnrolled:
			return echo.NewHTTPError(http.StatusConflict, "already enrolled in this course")
		}
		return err
	}
	return ctx.JSON(http.StatusCreated, enr)
}

func (api *courseApi) progress(ctx echo.Context) error {
	var data ProgressRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ProgressRequest")
	}
	if err := api.deps.Validate.Struct(&data); err != nil {
		return err
	}

	ctxUsr, err := getContextUser(ctx, api.deps.UserSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	enr, err := api.deps.EnrollSvc.CompleteItem(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"), data.ItemID)
	if err != nil {
		if errors.Cause(err) == enroll.ErrNotFound {
			return errHttpNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, enr)
}

func (api *courseApi) myEnrollments(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	enrollments, err := api.deps.EnrollSvc.QueryForUser(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []enroll.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

type (
	PublishRequest struct {
		Published bool `json:"published"`
	}

	ProgressRequest struct {
		ItemID string `json:"item_id" validate:"required"`
	}
)
