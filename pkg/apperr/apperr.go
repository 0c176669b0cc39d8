// Package apperr defines the error kinds shared by the storefront services
// and the HTTP layer that translates them into responses.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	Internal Kind = iota
	Validation
	NotFound
	InvalidState
	Configuration
	Gateway
	GatewayUnavailable
	GatewayProtocol
	Unauthorized
	Forbidden
)

var kindNames = map[Kind]string{
	Internal:           "internal",
	Validation:         "validation",
	NotFound:           "not_found",
	InvalidState:       "invalid_state",
	Configuration:      "configuration",
	Gateway:            "gateway_error",
	GatewayUnavailable: "gateway_unavailable",
	GatewayProtocol:    "gateway_protocol",
	Unauthorized:       "unauthorized",
	Forbidden:          "forbidden",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Retryable reports whether a caller may retry the failed operation with backoff.
func (k Kind) Retryable() bool {
	return k == Gateway || k == GatewayUnavailable
}

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, op string, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the client-facing text of err without the operation prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
	}
	return "internal server error"
}
