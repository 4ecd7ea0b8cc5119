// Package engramerr defines Engram's closed error taxonomy (spec §7) and its
// projections onto HTTP status codes and MCP JSON-RPC error codes. Every
// error that crosses a component boundary (C3 through C10) is, or wraps, an
// *Error from this package so the outer transports can map it uniformly.
package engramerr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind is one of the nine taxonomy members in spec §7.
type Kind string

// Taxonomy members.
const (
	KindInvalidRequest Kind = "InvalidRequest"
	KindUnauthorized   Kind = "Unauthorized"
	KindForbidden      Kind = "Forbidden"
	KindNotFound       Kind = "NotFound"
	KindAlreadyExists  Kind = "AlreadyExists"
	KindRateLimited    Kind = "RateLimited"
	KindTimeout        Kind = "Timeout"
	KindStorageError   Kind = "StorageError"
	KindUpstreamError  Kind = "UpstreamError"
)

// httpStatus maps each Kind to its HTTP status code (spec §7 table).
var httpStatus = map[Kind]int{
	KindInvalidRequest: 400,
	KindUnauthorized:   401,
	KindForbidden:      403,
	KindNotFound:       404,
	KindAlreadyExists:  409,
	KindRateLimited:    429,
	KindTimeout:        504,
	KindStorageError:   503,
	KindUpstreamError:  502,
}

// jsonRPCCode maps each Kind to a JSON-RPC error code. Only
// InvalidRequest has a code standardised by the JSON-RPC 2.0 spec itself
// (-32602, invalid params); the rest are application-defined.
// internal/mcpserver does not use these codes: it reports tool failures as
// isError tool-result content (spec §7: "tool error with message").
var jsonRPCCode = map[Kind]int{
	KindInvalidRequest: -32602,
	KindUnauthorized:   -32001,
	KindForbidden:      -32002,
	KindNotFound:       -32003,
	KindAlreadyExists:  -32004,
	KindRateLimited:    -32005,
	KindTimeout:        -32006,
	KindStorageError:   -32007,
	KindUpstreamError:  -32008,
}

// Error is the structured error type every component returns. Message is
// intended to be safe to show a client; Cause carries the detailed,
// loggable reason and is never serialised to the wire (spec §7,
// "User-visible message rule").
type Error struct {
	Kind          Kind
	Message       string
	Details       []string
	CorrelationID string

	// RetryAfterSeconds is set only for KindRateLimited (spec §7).
	RetryAfterSeconds int

	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (correlation_id=%s): %v", e.Kind, e.Message, e.CorrelationID, e.Cause)
	}
	return fmt.Sprintf("%s: %s (correlation_id=%s)", e.Kind, e.Message, e.CorrelationID)
}

func (e *Error) Unwrap() error { return e.Cause }

// HTTPStatus returns the HTTP status code for e's Kind.
func (e *Error) HTTPStatus() int {
	if code, ok := httpStatus[e.Kind]; ok {
		return code
	}
	return 500
}

// JSONRPCCode returns the MCP JSON-RPC error code for e's Kind.
func (e *Error) JSONRPCCode() int {
	if code, ok := jsonRPCCode[e.Kind]; ok {
		return code
	}
	return -32000
}

// New constructs an *Error of the given kind with a fresh correlation ID.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:          kind,
		Message:       message,
		CorrelationID: uuid.NewString(),
		Cause:         cause,
	}
}

// Invalid is a convenience constructor for KindInvalidRequest, carrying the
// offending field paths as Details (spec §7: "details enumerate offending
// paths").
func Invalid(message string, details ...string) *Error {
	e := New(KindInvalidRequest, message, nil)
	e.Details = details
	return e
}

// NotFound is a convenience constructor for KindNotFound.
func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

// Forbidden is a convenience constructor for KindForbidden. Callers in the
// retrieval path should generally prefer NotFound over Forbidden to avoid
// leaking existence (spec §7).
func Forbidden(message string) *Error {
	return New(KindForbidden, message, nil)
}

// AlreadyExists is a convenience constructor for KindAlreadyExists.
func AlreadyExists(message string) *Error {
	return New(KindAlreadyExists, message, nil)
}

// RateLimited is a convenience constructor for KindRateLimited.
func RateLimited(retryAfterSeconds int) *Error {
	e := New(KindRateLimited, "rate limit exceeded", nil)
	e.RetryAfterSeconds = retryAfterSeconds
	return e
}

// Timeout is a convenience constructor for KindTimeout.
func Timeout(message string, cause error) *Error {
	return New(KindTimeout, message, cause)
}

// Storage is a convenience constructor for KindStorageError.
func Storage(message string, cause error) *Error {
	return New(KindStorageError, message, cause)
}

// Upstream is a convenience constructor for KindUpstreamError.
func Upstream(message string, cause error) *Error {
	return New(KindUpstreamError, message, cause)
}

// Unauthorized is a convenience constructor for KindUnauthorized.
func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message, nil)
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// necessary — the idiomatic pairing with errors.Is for this package's
// single comparable field.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// As is a typed convenience wrapper around errors.As for *Error.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
