package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/attendance"
)

type attendanceApi struct {
	svc      *attendance.Service
	validate *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *attendance.Service, validate *validator.Validate) {
	api := attendanceApi{svc: svc, validate: validate}

	ag := g.Group("/groups/:id/attendance", jwt, teacherMiddleware())
	ag.GET("", api.sheet)
	ag.PUT("", api.apply)
}

// Handlers

func (api *attendanceApi) sheet(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sheet, err := api.svc.Sheet(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "building attendance sheet")
	}
	return ctx.JSON(http.StatusOK, sheet)
}

// apply commits a batch of cell edits. Cells that could not be written are
// listed in the result, which then comes with a 207 status.
func (api *attendanceApi) apply(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data attendance.Edits
	if err = bindAndValidate(ctx, api.validate, &data, "Edits"); err != nil {
		return err
	}

	res, err := api.svc.Apply(ctx.Request().Context(), usr.ID, ctx.Param("id"), data.Edits)
	if err != nil {
		return errors.Wrap(err, "applying attendance edits")
	}
	if !res.OK() {
		return ctx.JSON(http.StatusMultiStatus, res)
	}
	return ctx.JSON(http.StatusOK, res)
}
