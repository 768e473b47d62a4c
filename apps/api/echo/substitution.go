package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/substitution"
)

var errUnknownScope = core.NewValidationError(
	errors.New("unknown scope"),
	core.FieldError{Field: "scope", Error: "must be one of reported, covering, unclaimed"},
)

type substitutionApi struct {
	coord    *substitution.Coordinator
	validate *validator.Validate
}

func registerSubstitutionAPI(g *echo.Group, jwt echo.MiddlewareFunc, coord *substitution.Coordinator, validate *validator.Validate) {
	api := substitutionApi{coord: coord, validate: validate}

	g.POST("/lessons/:id/substitutions", api.report, jwt, teacherMiddleware())

	sg := g.Group("/substitutions", jwt, staffMiddleware())
	sg.GET("", api.query)
	sg.POST("/:id/claim", api.claim)
	sg.POST("/:id/assign", api.assign, adminMiddleware())
	sg.POST("/:id/release", api.release)
	sg.DELETE("/:id", api.cancel)
}

// Handlers

func (api *substitutionApi) report(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data substitution.NewSubstitution
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSubstitution")
	}
	data.LessonID = ctx.Param("id")
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	sub, err := api.coord.ReportSubstituteNeeded(ctx.Request().Context(), data, usr)
	if err != nil {
		return errors.Wrap(err, "reporting substitution")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

// query lists the caller's substitutions: ?scope=reported (default), covering or unclaimed.
func (api *substitutionApi) query(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	var subs []substitution.Substitution
	switch ctx.QueryParam("scope") {
	case "", "reported":
		subs, err = api.coord.ListReportedBy(reqCtx, usr.ID)
	case "covering":
		subs, err = api.coord.ListCovering(reqCtx, usr.ID)
	case "unclaimed":
		subs, err = api.coord.ListUnclaimed(reqCtx)
	default:
		return errUnknownScope
	}
	if err != nil {
		return errors.Wrap(err, "querying substitutions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *substitutionApi) claim(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.coord.Claim(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "claiming substitution")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *substitutionApi) assign(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data substitution.AssignSubstitute
	if err = bindAndValidate(ctx, api.validate, &data, "AssignSubstitute"); err != nil {
		return err
	}
	sub, err := api.coord.Assign(ctx.Request().Context(), ctx.Param("id"), data.TeacherID, usr)
	if err != nil {
		return errors.Wrap(err, "assigning substitute")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *substitutionApi) release(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	sub, err := api.coord.Release(ctx.Request().Context(), ctx.Param("id"), usr)
	if err != nil {
		return errors.Wrap(err, "releasing substitution")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *substitutionApi) cancel(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.coord.Cancel(ctx.Request().Context(), ctx.Param("id"), usr); err != nil {
		return errors.Wrap(err, "cancelling substitution")
	}
	return ctx.NoContent(http.StatusNoContent)
}
