// Package faaserr centralizes the error taxonomy surfaced to clients
// (spec action/message discriminator) so handlers never hand-roll the
// action strings.
package faaserr

import (
	"errors"
	"fmt"
)

// Action identifies one of the enumerated client-visible error kinds.
type Action string

const (
	NoWorkers             Action = "no_workers"
	NoFunc                Action = "no_func"
	Forbidden             Action = "forbidden"
	MissingAnnotation     Action = "missing_annotation"
	ValidationFailed      Action = "validation_failed"
	ExecutionFailed       Action = "execution_failed"
	Timeout               Action = "timeout"
	DeserializationFailed Action = "deserialization_failed"
	ConfigError           Action = "config_error"
	InternalError         Action = "internal_error"
)

// Error is a client-facing error: an enumerated action plus a human message.
type Error struct {
	action  Action
	message string
}

func New(action Action, format string, args ...any) *Error {
	return &Error{action: action, message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return string(e.action) + ": " + e.message }

// Action returns the enumerated action for building a ClientResponse.
func (e *Error) Action() Action { return e.action }

// Message returns the human-readable detail.
func (e *Error) Message() string { return e.message }

func NoWorkersErr(format string, args ...any) *Error {
	return New(NoWorkers, format, args...)
}

func NoFuncErr(format string, args ...any) *Error {
	return New(NoFunc, format, args...)
}

func ForbiddenErr(format string, args ...any) *Error {
	return New(Forbidden, format, args...)
}

func MissingAnnotationErr(format string, args ...any) *Error {
	return New(MissingAnnotation, format, args...)
}

func ValidationFailedErr(format string, args ...any) *Error {
	return New(ValidationFailed, format, args...)
}

func ExecutionFailedErr(format string, args ...any) *Error {
	return New(ExecutionFailed, format, args...)
}

func TimeoutErr(format string, args ...any) *Error {
	return New(Timeout, format, args...)
}

func DeserializationFailedErr(format string, args ...any) *Error {
	return New(DeserializationFailed, format, args...)
}

func ConfigErrorErr(format string, args ...any) *Error {
	return New(ConfigError, format, args...)
}

func InternalErrorErr(format string, args ...any) *Error {
	return New(InternalError, format, args...)
}

// As extracts a *Error from a generic error, unwrapping any fmt.Errorf
// %w chain built around it (handlers route errors through several layers
// of context-adding wraps before converting them to a client response).
func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
