package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/points"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/substitution"
)

type pointsApi struct {
	svc      *points.Service
	lessons  *schedule.Service
	coord    *substitution.Coordinator
	validate *validator.Validate
}

func registerPointsAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	svc *points.Service,
	lessons *schedule.Service,
	coord *substitution.Coordinator,
	validate *validator.Validate,
) {
	api := pointsApi{svc: svc, lessons: lessons, coord: coord, validate: validate}

	g.GET("/students/:id/points", api.balance, jwt)
	g.POST("/lessons/:id/remarks", api.remark, jwt, teacherMiddleware())
}

// Handlers

// balance is readable by the student themselves and by staff.
func (api *pointsApi) balance(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	studentID := ctx.Param("id")
	if usr.ID != studentID && !usr.IsTeacher() && !usr.IsAdmin() {
		return errHttpForbidden
	}

	bal, err := api.svc.Balance(ctx.Request().Context(), studentID)
	if err != nil {
		return errors.Wrap(err, "computing points balance")
	}
	return ctx.JSON(http.StatusOK, bal)
}

// remark penalizes a student for an equipment remark left on a lesson the teacher can write.
func (api *pointsApi) remark(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data RemarkRequest
	if err = bindAndValidate(ctx, api.validate, &data, "RemarkRequest"); err != nil {
		return err
	}

	reqCtx := ctx.Request().Context()
	lsn, err := api.lessons.GetLesson(reqCtx, ctx.Param("id"))
	if err != nil {
		return err
	}
	ok, err := api.coord.CanEdit(reqCtx, usr.ID, lsn.ID)
	if err != nil {
		return errors.Wrap(err, "checking lesson access")
	}
	if !ok {
		return errHttpForbidden
	}

	if err = api.svc.PenalizeRemark(reqCtx, data.StudentID, lsn.ID); err != nil {
		return errors.Wrap(err, "penalizing remark")
	}
	return ctx.JSON(http.StatusCreated, SuccessResponse{Success: "remark recorded"})
}
