// Package apperr defines the closed set of failures the record engine can
// report. Business code returns *Error values; the HTTP boundary maps each
// Kind to a status code with an exhaustive switch.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error. The set is closed: new kinds must be added to
// HTTPStatus and Code as well.
type Kind int

const (
	Internal Kind = iota
	Unauthenticated
	MalformedContext
	Forbidden
	OwnershipViolation
	NotFound
	InvalidStateTransition
	PreconditionFailed
	Invalid
)

// Error is the single error type crossing service boundaries.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == Internal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports kind equality so callers can write errors.Is(err, apperr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels usable with errors.Is. They match any *Error of the same kind.
var (
	ErrUnauthenticated        = &Error{Kind: Unauthenticated}
	ErrMalformedContext       = &Error{Kind: MalformedContext}
	ErrForbidden              = &Error{Kind: Forbidden}
	ErrOwnershipViolation     = &Error{Kind: OwnershipViolation}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrInvalidStateTransition = &Error{Kind: InvalidStateTransition}
	ErrPreconditionFailed     = &Error{Kind: PreconditionFailed}
	ErrInvalid                = &Error{Kind: Invalid}
	ErrInternal               = &Error{Kind: Internal}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Unauthenticatedf(format string, args ...any) *Error {
	return newf(Unauthenticated, format, args...)
}

func MalformedContextf(format string, args ...any) *Error {
	return newf(MalformedContext, format, args...)
}

func Forbiddenf(format string, args ...any) *Error {
	return newf(Forbidden, format, args...)
}

func OwnershipViolationf(format string, args ...any) *Error {
	return newf(OwnershipViolation, format, args...)
}

// NotFoundf builds the NotFound error for an entity type. The message only
// ever names the type so that an out-of-tenant record and a missing record
// produce identical responses.
func NotFoundf(entityType string) *Error {
	return newf(NotFound, "%s not found", entityType)
}

// InvalidTransition names both statuses of a rejected transition.
func InvalidTransition(entityType, from, to string) *Error {
	return newf(InvalidStateTransition, "%s cannot transition from %q to %q", entityType, from, to)
}

func InvalidStateTransitionf(format string, args ...any) *Error {
	return newf(InvalidStateTransition, format, args...)
}

func PreconditionFailedf(format string, args ...any) *Error {
	return newf(PreconditionFailed, format, args...)
}

func Invalidf(format string, args ...any) *Error {
	return newf(Invalid, format, args...)
}

// Wrap turns an unexpected failure (store, driver) into an Internal error.
// The wrapped error is kept for logging but never rendered to clients.
func Wrap(err error, msg string) *Error {
	return &Error{Kind: Internal, Message: msg, Err: err}
}

// KindOf returns the kind of err, or Internal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case Unauthenticated, MalformedContext:
		return http.StatusUnauthorized
	case Forbidden, OwnershipViolation:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case InvalidStateTransition:
		return http.StatusConflict
	case PreconditionFailed, Invalid:
		return http.StatusBadRequest
	case Internal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Code is the stable machine-readable name of a kind.
func Code(k Kind) string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case MalformedContext:
		return "malformed_context"
	case Forbidden:
		return "forbidden"
	case OwnershipViolation:
		return "ownership_violation"
	case NotFound:
		return "not_found"
	case InvalidStateTransition:
		return "invalid_state_transition"
	case PreconditionFailed:
		return "precondition_failed"
	case Invalid:
		return "invalid_request"
	case Internal:
		return "internal_error"
	default:
		return "internal_error"
	}
}

func (k Kind) String() string {
	return Code(k)
}
