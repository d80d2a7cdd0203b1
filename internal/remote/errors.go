package remote

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Code classifies a gateway failure.
type Code string

const (
	CodeNotFound    Code = "not_found"
	CodeValidation  Code = "validation"
	CodeUnavailable Code = "unavailable"
)

// Error is returned by every gateway call that fails.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote %s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of err, or "" when err is not a remote error.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

func IsNotFound(err error) bool    { return CodeOf(err) == CodeNotFound }
func IsValidation(err error) bool  { return CodeOf(err) == CodeValidation }
func IsUnavailable(err error) bool { return CodeOf(err) == CodeUnavailable }

// classify wraps a driver error. Anything not recognised as a missing row or
// a constraint violation is treated as the store being unavailable.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	code := CodeUnavailable
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		code = CodeNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidValue),
		errors.Is(err, gorm.ErrInvalidField):
		code = CodeValidation
	}
	return &Error{Code: code, Op: op, Err: err}
}

func notFound(op string) error {
	return &Error{Code: CodeNotFound, Op: op, Err: gorm.ErrRecordNotFound}
}
