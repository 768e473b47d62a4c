package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate binds the request into data, then validates it.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data validatable, name string) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(err, "binding to "+name)
	}
	return data.Validate(validate)
}

type (
	SuccessResponse struct {
		Success string `json:"success"`
	}

	RemarkRequest struct {
		StudentID string `json:"student_id" validate:"required"`
	}
)

func (r *RemarkRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}
