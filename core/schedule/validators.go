package schedule

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

func (nl NewLesson) Validate(validate *validator.Validate) error {
	return validate.Struct(nl)
}

func (ul UpdateLesson) Validate(validate *validator.Validate) error {
	return validate.Struct(ul)
}

func (gl GenerateLessons) Validate(validate *validator.Validate) error {
	return validate.Struct(gl)
}

func (q RoomQuery) Validate(validate *validator.Validate) error {
	return validate.Struct(q)
}

// Parse returns the day and window the query asks about.
func (q RoomQuery) Parse() (time.Time, Window, error) {
	date, err := parseDate("date", q.Date)
	if err != nil {
		return time.Time{}, Window{}, err
	}
	start, err := ParseClock(q.Start)
	if err != nil {
		return time.Time{}, Window{}, core.NewValidationError(err, core.FieldError{Field: "start", Error: err.Error()})
	}
	end, err := ParseClock(q.End)
	if err != nil {
		return time.Time{}, Window{}, core.NewValidationError(err, core.FieldError{Field: "end", Error: err.Error()})
	}
	return date, Window{Start: start, End: end}, nil
}

func parseDate(field, s string) (time.Time, error) {
	date, err := core.ParseDate(s)
	if err != nil {
		err = errors.New("must be a date formatted as YYYY-MM-DD")
		return time.Time{}, core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return date, nil
}
