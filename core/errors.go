package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// ConflictError refuses an operation because of existing state.
// Detail carries what it conflicts with (lessons, a substitution...).
type ConflictError struct {
	Err    error
	Detail interface{}
}

func NewConflictError(err error, detail interface{}) error {
	return &ConflictError{Err: err, Detail: detail}
}

func (err ConflictError) Error() string {
	if err.Err == nil {
		return "conflict"
	}
	return err.Err.Error()
}

func (err ConflictError) Unwrap() error { return err.Err }

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

type permissionDenied struct {
	message string
}

// NewPermissionError returns an error telling the caller is not allowed to do something.
func NewPermissionError(msg string) error {
	return &permissionDenied{message: msg}
}

func (p permissionDenied) Error() string {
	return p.message
}

func IsPermissionDenied(err error) bool {
	_, ok := errors.Cause(err).(*permissionDenied)
	return ok
}

type notFound struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &notFound{message: msg}
}

func (nf notFound) Error() string {
	return nf.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*notFound)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
