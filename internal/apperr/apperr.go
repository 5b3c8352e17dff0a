// Package apperr defines the request-level error kinds and their HTTP mapping.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure
type Kind string

const (
	KindUserInput           Kind = "user_input"
	KindUpstreamUnavailable Kind = "upstream_unavailable"
	KindUpstreamError       Kind = "upstream_error"
	KindUpstreamProtocol    Kind = "upstream_protocol"
	KindQueryExecution      Kind = "query_execution"
	KindInternal            Kind = "internal"
)

// Error carries a Kind, a client-facing message and the underlying cause
type Error struct {
	Kind    Kind
	Message string
	// StatusCode is the upstream provider's HTTP status for KindUpstreamError
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func UserInput(message string) *Error {
	return &Error{Kind: KindUserInput, Message: message}
}

func UpstreamUnavailable(message string, err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: message, Err: err}
}

func UpstreamError(statusCode int, message string) *Error {
	return &Error{Kind: KindUpstreamError, Message: message, StatusCode: statusCode}
}

func UpstreamProtocol(message string, err error) *Error {
	return &Error{Kind: KindUpstreamProtocol, Message: message, Err: err}
}

func QueryExecution(message string, err error) *Error {
	return &Error{Kind: KindQueryExecution, Message: message, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// As extracts an *Error from err. Foreign errors are wrapped as KindInternal.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}

// KindOf returns the Kind of err, KindInternal for errors not created here
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

// HTTPStatus is the only place kinds become transport status codes
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindUserInput, KindQueryExecution:
		return http.StatusBadRequest
	case KindUpstreamUnavailable:
		return http.StatusServiceUnavailable
	case KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
