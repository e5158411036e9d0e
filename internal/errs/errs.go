// Package errs defines the error taxonomy shared by the ingestion and query pipelines.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping and monitoring.
type Kind string

const (
	// KindClientInput is a caller mistake: bad question, empty file, unreadable format.
	KindClientInput Kind = "client_input"
	// KindUpstream means an external service (embedding/reasoning) returned non-success.
	KindUpstream Kind = "upstream"
	// KindMalformedResponse means an external service returned success with an unexpected shape.
	KindMalformedResponse Kind = "malformed_response"
	// KindStorage is a persistence failure.
	KindStorage Kind = "storage"
	// KindNotFound means a referenced document does not exist.
	KindNotFound Kind = "not_found"
	// KindInternal is an unclassified server-side failure.
	KindInternal Kind = "internal"
)

// Error carries a kind, a human-readable message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ClientInput returns a client-input error with the given message.
func ClientInput(msg string) *Error {
	return &Error{Kind: KindClientInput, Message: msg}
}

// Upstream wraps an upstream service failure.
func Upstream(msg string, err error) *Error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// Upstreamf formats an upstream failure message from the service name and status.
func Upstreamf(service string, status int) *Error {
	return &Error{Kind: KindUpstream, Message: fmt.Sprintf("%s service returned status %d", service, status)}
}

// Malformed reports a success response with an unexpected payload shape.
func Malformed(msg string) *Error {
	return &Error{Kind: KindMalformedResponse, Message: msg}
}

// Storage wraps a persistence failure.
func Storage(msg string, err error) *Error {
	return &Error{Kind: KindStorage, Message: msg, Err: err}
}

// NotFound reports a missing document.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Internal wraps an unclassified failure.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// Wrap prefixes err's message with stage context, preserving its kind.
// A nil err returns nil; a non-taxonomy err becomes KindInternal.
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &Error{Kind: e.Kind, Message: fmt.Sprintf("%s: %s", stage, e.Message), Err: e.Err}
	}
	return &Error{Kind: KindInternal, Message: stage, Err: err}
}

// KindOf returns the kind of err, or KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to an HTTP status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindClientInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	case KindMalformedResponse, KindStorage, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
