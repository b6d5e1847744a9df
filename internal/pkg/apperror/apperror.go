package apperror

import "errors"

// Kind classifies an error for transport mapping.
type Kind uint8

const (
	KindValidation Kind = iota + 1
	KindBusiness
	KindNotFound
	KindForbidden
)

// Error is a user-facing error carrying a Kind. Messages are shown to callers as-is.
type Error struct {
	kind Kind
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Validation marks bad input or a broken data invariant.
func Validation(msg string) *Error { return &Error{kind: KindValidation, msg: msg} }

// Business marks a workflow rule refusing the operation.
func Business(msg string) *Error { return &Error{kind: KindBusiness, msg: msg} }

func NotFound(msg string) *Error { return &Error{kind: KindNotFound, msg: msg} }

func Forbidden(msg string) *Error { return &Error{kind: KindForbidden, msg: msg} }

// ErrForbidden is returned when an actor lacks the capability for an operation.
var ErrForbidden = Forbidden("User is Forbidden from performing this action")

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.kind, true
	}
	return 0, false
}

// Message returns the user-facing message of the first *Error in err's chain, or "" if none.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	return ""
}
