// Package apperr is the error model shared by every library feature.
// Handlers map it onto HTTP status codes; services never return raw driver errors.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION"
	CodeNotFound     Code = "NOT_FOUND"
	CodePolicy       Code = "POLICY"
	CodeConflict     Code = "CONFLICT"
	CodeForbidden    Code = "FORBIDDEN"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInternal     Code = "INTERNAL"
)

// Policy / conflict reasons
const (
	ReasonOverdueLock     = "overdue-lock"
	ReasonLimitReached    = "limit-reached"
	ReasonDuplicateTitle  = "duplicate-title"
	ReasonUnavailable     = "unavailable"
	ReasonAlreadyReturned = "already-returned"
	ReasonBorrowed        = "borrowed"
	ReasonOpenLoans       = "open-loans"
	ReasonDuplicate       = "duplicate"
)

type Error struct {
	Code    Code
	Reason  string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s(%s): %s", e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func Validation(msg string) *Error { return &Error{Code: CodeValidation, Message: msg} }
func NotFound(msg string) *Error   { return &Error{Code: CodeNotFound, Message: msg} }
func Forbidden(msg string) *Error  { return &Error{Code: CodeForbidden, Message: msg} }

func Unauthorized(msg string) *Error { return &Error{Code: CodeUnauthorized, Message: msg} }

func Policy(reason, msg string) *Error {
	return &Error{Code: CodePolicy, Reason: reason, Message: msg}
}

func Conflict(reason, msg string) *Error {
	return &Error{Code: CodeConflict, Reason: reason, Message: msg}
}

// Internal wraps an unexpected failure. The cause stays reachable through
// errors.Is / errors.As but is never rendered to clients.
// Errors that already belong to the model pass through unchanged.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Code: CodeInternal, Message: "internal error", cause: err}
}

// CodeOf returns the code carried by err, INTERNAL for anything unclassified.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

// ReasonOf returns the policy/conflict reason carried by err, if any.
func ReasonOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Reason
	}
	return ""
}

func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodePolicy, CodeConflict:
		return http.StatusBadRequest
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
