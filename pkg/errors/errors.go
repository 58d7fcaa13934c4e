// Package errors defines the sentinel errors shared across morfseg and an
// AppError type that carries an HTTP status for the segmentation service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnknownAlgorithm  = errors.New("unknown algorithm")
	ErrUnknownParseType  = errors.New("unknown parse type")
	ErrUnknownDampening  = errors.New("unknown dampening type")
	ErrUnknownMode       = errors.New("unknown training mode")
	ErrUnknownBackend    = errors.New("unknown store backend")
	ErrInvalidInput      = errors.New("invalid input")
	ErrModelNotFound     = errors.New("model not found")
	ErrInconsistentState = errors.New("inconsistent model state")
	ErrTimeout           = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Is and As re-export the standard helpers so callers importing this package
// under the name "errors" keep access to them.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrUnknownAlgorithm),
		errors.Is(err, ErrUnknownParseType),
		errors.Is(err, ErrUnknownDampening),
		errors.Is(err, ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
