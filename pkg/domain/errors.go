package domain

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the error taxonomy. It names a kind of failure,
// not a Go type: every core-raised error is a *Error carrying one of these
// kinds, so callers can branch with errors.Is/As against a single
// concrete type instead of six distinct sentinel types.
type ErrorKind int

const (
	// KindIllegalState marks an operation invoked on the wrong layer, an
	// attempt to rebind an overlayed reference, a mutation of a terminal
	// status, or marking a stale/removed state modified.
	KindIllegalState ErrorKind = iota
	// KindIllegalArgument marks an invalid initial status, an invalid
	// status transition, or an SNS index < 1.
	KindIllegalArgument
	// KindNoSuchItem marks a child reference resolving to an unknown id.
	KindNoSuchItem
	// KindItemStateError marks a resolution/refresh failure caused by an
	// underlying SPI error; the cause is always present.
	KindItemStateError
	// KindRepository marks a failed path composition, surfaced verbatim.
	KindRepository
	// KindItemNotFound marks a parent that disappeared during path
	// construction.
	KindItemNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case KindIllegalState:
		return "IllegalState"
	case KindIllegalArgument:
		return "IllegalArgument"
	case KindNoSuchItem:
		return "NoSuchItem"
	case KindItemStateError:
		return "ItemStateError"
	case KindRepository:
		return "Repository"
	case KindItemNotFound:
		return "ItemNotFound"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type for every error kind the core
// produces: a plain struct implementing error, inspected by callers,
// generalized with a Kind field so errors.Is/As work uniformly.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, enabling
// errors.Is(err, domain.NewIllegalState("")) style checks without caring
// about Message/Cause.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == other.Kind
}

// NewIllegalState builds a KindIllegalState error.
func NewIllegalState(format string, args ...any) *Error {
	return &Error{Kind: KindIllegalState, Message: fmt.Sprintf(format, args...)}
}

// NewIllegalArgument builds a KindIllegalArgument error.
func NewIllegalArgument(format string, args ...any) *Error {
	return &Error{Kind: KindIllegalArgument, Message: fmt.Sprintf(format, args...)}
}

// NewNoSuchItem builds a KindNoSuchItem error.
func NewNoSuchItem(format string, args ...any) *Error {
	return &Error{Kind: KindNoSuchItem, Message: fmt.Sprintf(format, args...)}
}

// NewItemStateError builds a KindItemStateError error wrapping cause.
func NewItemStateError(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindItemStateError, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NewRepositoryError builds a KindRepository error.
func NewRepositoryError(format string, args ...any) *Error {
	return &Error{Kind: KindRepository, Message: fmt.Sprintf(format, args...)}
}

// NewItemNotFound builds a KindItemNotFound error.
func NewItemNotFound(format string, args ...any) *Error {
	return &Error{Kind: KindItemNotFound, Message: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
