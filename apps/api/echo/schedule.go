package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/schedule"
)

type scheduleApi struct {
	svc      *schedule.Service
	validate *validator.Validate
}

func registerScheduleAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *schedule.Service, validate *validator.Validate) {
	api := scheduleApi{svc: svc, validate: validate}

	ag := g.Group("", jwt, staffMiddleware())
	ag.GET("/rooms/:id/availability", api.roomAvailability)
	ag.GET("/groups/:id/lessons", api.groupLessons)

	// timetable changes
	ag.POST("/lessons", api.createLesson, adminMiddleware())
	ag.PUT("/lessons/:id", api.updateLesson, adminMiddleware())
	ag.DELETE("/lessons/:id", api.deleteLesson, adminMiddleware())
	ag.POST("/groups/:id/lessons/generate", api.generateLessons, adminMiddleware())
}

// Handlers

func (api *scheduleApi) roomAvailability(ctx echo.Context) error {
	var q schedule.RoomQuery
	if err := bindAndValidate(ctx, api.validate, &q, "RoomQuery"); err != nil {
		return err
	}
	date, w, err := q.Parse()
	if err != nil {
		return err
	}

	res, err := api.svc.CheckRoom(ctx.Request().Context(), ctx.Param("id"), date, w, q.ExcludeLessonID)
	if err != nil {
		return errors.Wrap(err, "checking room")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *scheduleApi) groupLessons(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	if _, err := api.svc.GetGroup(reqCtx, ctx.Param("id")); err != nil {
		return err
	}
	lessons, err := api.svc.ListGroupLessons(reqCtx, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing group lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *scheduleApi) createLesson(ctx echo.Context) error {
	var data schedule.NewLesson
	if err := bindAndValidate(ctx, api.validate, &data, "NewLesson"); err != nil {
		return err
	}
	lsn, err := api.svc.CreateLesson(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lsn)
}

func (api *scheduleApi) updateLesson(ctx echo.Context) error {
	var data schedule.UpdateLesson
	if err := bindAndValidate(ctx, api.validate, &data, "UpdateLesson"); err != nil {
		return err
	}
	lsn, err := api.svc.UpdateLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lsn)
}

func (api *scheduleApi) deleteLesson(ctx echo.Context) error {
	if err := api.svc.DeleteLesson(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lesson")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *scheduleApi) generateLessons(ctx echo.Context) error {
	var data schedule.GenerateLessons
	if err := bindAndValidate(ctx, api.validate, &data, "GenerateLessons"); err != nil {
		return err
	}
	lessons, err := api.svc.Generate(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "generating lessons")
	}
	return ctx.JSON(http.StatusCreated, lessons)
}
