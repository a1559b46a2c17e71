// Package apierr models the error taxonomy of spec §7 as a single typed
// error with an HTTP status code, so handlers never have to re-derive a
// status from a bare error string.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies one of the error families spec §7 requires the HTTP API
// to distinguish.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeNotFound            Code = "NOT_FOUND"
	CodeConflict            Code = "CONFLICT"
	CodeServiceUnavailable  Code = "SERVICE_UNAVAILABLE"
	CodeInternal            Code = "INTERNAL_ERROR"
	CodeAlreadyRunning      Code = "ALREADY_RUNNING"
	CodeRateLimited         Code = "RATE_LIMIT_EXCEEDED"
	CodeTimeout             Code = "TIMEOUT"
	CodeDataInconsistency   Code = "DATA_INCONSISTENCY"
)

// Error is the structured error returned by core components and rendered
// by the HTTP layer.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// StatusCode maps Code to the HTTP status spec §7 prescribes.
func (e *Error) StatusCode() int {
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeAlreadyRunning:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// As is a thin wrapper over errors.As for the common case of pulling an
// *Error out of a wrapped chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// ErrAlreadyRunning is returned by the Execution Registry's Begin when a
// command is already running (spec §4.5, §7 "Concurrency refusal").
var ErrAlreadyRunning = New(CodeAlreadyRunning, "command is already running")

// ErrNotFound is a generic not-found sentinel for config keys, commands,
// executions, and artifacts.
var ErrNotFound = New(CodeNotFound, "not found")
