// Package apperr defines the error taxonomy shared by services and the HTTP
// layer. Callers classify with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrBadRequest   = errors.New("bad request")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
)

// NotFound wraps ErrNotFound with the resource name. Ownership mismatches use
// this too, so a foreign order id is indistinguishable from a missing one.
func NotFound(resource string) error {
	return fmt.Errorf("%s: %w", resource, ErrNotFound)
}

func BadRequest(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrBadRequest)
}

func BadRequestf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrBadRequest)...)
}

func Conflict(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrConflict)
}
