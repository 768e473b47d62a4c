package attendance

import "github.com/go-playground/validator/v10"

func (e Edits) Validate(validate *validator.Validate) error {
	return validate.Struct(e)
}
