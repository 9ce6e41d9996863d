// Package common defines the sentinel error taxonomy shared by repositories,
// services and the HTTP boundary. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound  = errors.New("not found")
	ErrorDuplicate = errors.New("duplicate")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")

	// Validation errors (malformed helpfulness, missing required fields).
	ErrorValidation = errors.New("validation error")

	// ErrorEditWindowClosed is returned when a note is edited after its edit
	// window. It matches ErrorForbidden as well.
	ErrorEditWindowClosed = fmt.Errorf("%w: edit window has closed", ErrorForbidden)

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
