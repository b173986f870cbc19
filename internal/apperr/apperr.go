// Package apperr defines the error kinds surfaced by the booking domain.
//
// Every write path reports failures synchronously as one of four kinds so
// that transport layers can map them without string matching.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConstraint
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindConstraint:
		return "constraint violation"
	case KindConflict:
		return "concurrency conflict"
	default:
		return "error"
	}
}

// Error carries the kind, the offending field (validation only) and an
// optional cause.
type Error struct {
	Kind    Kind
	Field   string
	Message string
	Err     error
}

// Sentinels for errors.Is checks. They match any *Error of the same kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConstraint = &Error{Kind: KindConstraint}
	ErrConflict   = &Error{Kind: KindConflict}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Field == "" && t.Message == "" && t.Err == nil
}

// Wrap attaches a cause and returns the receiver.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func Validation(field, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

func NotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Field: entity, Message: fmt.Sprintf("%s %s does not exist", entity, id)}
}

func Constraint(format string, args ...any) *Error {
	return &Error{Kind: KindConstraint, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in the chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsConstraint(err error) bool { return KindOf(err) == KindConstraint }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
