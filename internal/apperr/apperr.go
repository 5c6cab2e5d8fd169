// Package apperr defines the error kinds surfaced to the user.
//
// Every remote call is caught at its call site and shown in a modal alert;
// the kind decides the alert title, the message is meant for humans.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrAuth       = errors.New("authentication failed")
	ErrValidation = errors.New("invalid input")
	ErrBackend    = errors.New("backend request failed")
	ErrPermission = errors.New("permission denied")
	ErrUnknown    = errors.New("unknown error")
)

// Error carries a kind sentinel, the failing operation and an optional cause.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func New(kind error, op, message string) error {
	return &Error{Kind: kind, Op: op, Message: message}
}

func Wrap(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Auth(op, message string) error       { return New(ErrAuth, op, message) }
func Validation(op, message string) error { return New(ErrValidation, op, message) }
func Permission(op, message string) error { return New(ErrPermission, op, message) }

// Backend wraps a failed remote call. Errors that already carry a kind keep it.
func Backend(op string, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != ErrUnknown {
		return err
	}
	return Wrap(ErrBackend, op, err)
}

// KindOf reports which sentinel err belongs to.
func KindOf(err error) error {
	for _, kind := range []error{ErrAuth, ErrValidation, ErrBackend, ErrPermission} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrUnknown
}

// Title is the alert heading for err.
func Title(err error) string {
	switch KindOf(err) {
	case ErrAuth:
		return "Authentication error"
	case ErrValidation:
		return "Check your input"
	case ErrBackend:
		return "Connection problem"
	case ErrPermission:
		return "Permission denied"
	default:
		return "Something went wrong"
	}
}

// Message is the alert body for err: the first human message in the chain,
// falling back to the error text.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	switch KindOf(err) {
	case ErrBackend:
		return "Could not reach the server. Please try again."
	case ErrPermission:
		return "Access was denied."
	}
	return err.Error()
}
