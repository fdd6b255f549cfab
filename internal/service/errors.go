package service

import (
	"errors"
	"fmt"

	"github.com/uppalcrm/crm/api/internal/service/entitlement"
)

var (
	// ErrNotFound hides both missing rows and rows owned by another organization.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned for missing or unusable credentials.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller lacks a permission.
	ErrForbidden = errors.New("forbidden")
	// ErrRateLimited is returned when a quota is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrConflict is returned for uniqueness clashes such as a duplicate lead email.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials is returned by Login for unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidArgument = entitlement.ErrInvalidArgument
	ErrInvalidState    = entitlement.ErrInvalidState
)

// FieldError attaches the offending request field to one of the sentinel errors.
type FieldError struct {
	Err     error
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func invalidField(field, format string, args ...any) error {
	return &FieldError{Err: ErrInvalidArgument, Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}
