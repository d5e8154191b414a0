package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedDocument = errors.New("malformed document stream")
	ErrCorruptIndex      = errors.New("corrupt index")
	ErrTruncatedInput    = errors.New("truncated index input")
	ErrQueryTermEncoding = errors.New("query term encoding")
	ErrIndexNotLoaded    = errors.New("index not loaded")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// HTTPStatusCode maps an error to the status the serve-mode handler should
// return for it.
func HTTPStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrQueryTermEncoding):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ExitCode maps an error to the process exit status for the build and query
// invocations. Structural failures get distinct codes so batch callers can
// tell a bad corpus from a bad index artifact.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrMalformedDocument):
		return 2
	case errors.Is(err, ErrCorruptIndex), errors.Is(err, ErrTruncatedInput):
		return 3
	case errors.Is(err, ErrInvalidInput):
		return 4
	default:
		return 1
	}
}
