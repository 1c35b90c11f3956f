// Package apperr defines the error taxonomy returned by services and rendered by
// handlers. Every domain error carries a status code, a client-safe message and
// optional field-level details; the wrapped cause is for server-side logs only.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindEmptyPath           Kind = "EMPTY_PATH"
	KindConflict            Kind = "CONFLICT"
	KindInvalidCredentials  Kind = "INVALID_CREDENTIALS"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindTokenInvalid        Kind = "TOKEN_INVALID"
	KindTokenExpired        Kind = "TOKEN_EXPIRED"
	KindTokenMismatch       Kind = "TOKEN_MISMATCH"
	KindNotFound            Kind = "NOT_FOUND"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindUploadFailure       Kind = "UPLOAD_FAILURE"
	KindPersistenceFailure  Kind = "PERSISTENCE_FAILURE"
	KindCompensationFailure Kind = "COMPENSATION_FAILURE"
	KindInternal            Kind = "INTERNAL"
)

var statusByKind = map[Kind]int{
	KindValidation:          http.StatusBadRequest,
	KindEmptyPath:           http.StatusBadRequest,
	KindConflict:            http.StatusConflict,
	KindInvalidCredentials:  http.StatusUnauthorized,
	KindUnauthorized:        http.StatusUnauthorized,
	KindTokenInvalid:        http.StatusUnauthorized,
	KindTokenExpired:        http.StatusUnauthorized,
	KindTokenMismatch:       http.StatusUnauthorized,
	KindNotFound:            http.StatusNotFound,
	KindRateLimited:         http.StatusTooManyRequests,
	KindUploadFailure:       http.StatusBadGateway,
	KindPersistenceFailure:  http.StatusInternalServerError,
	KindCompensationFailure: http.StatusInternalServerError,
	KindInternal:            http.StatusInternalServerError,
}

// Detail is one structured entry of the error envelope's errors array.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Status  int
	Message string
	Details []Detail
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports kind equality so callers can match against the exported sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithDetails returns a copy of e with extra details appended.
func (e *Error) WithDetails(details ...Detail) *Error {
	cp := *e
	cp.Details = append(append([]Detail(nil), e.Details...), details...)
	return &cp
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Status: StatusOf(kind), Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Status: StatusOf(kind), Message: message, Cause: cause}
}

func StatusOf(kind Kind) int {
	if s, ok := statusByKind[kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for non-domain errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func Validation(message string, details ...Detail) *Error {
	return New(KindValidation, message).WithDetails(details...)
}

func Conflict(message string) *Error { return New(KindConflict, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func Internal(cause error) *Error {
	return Wrap(KindInternal, "Internal server error", cause)
}

// Sentinels for errors.Is checks.
var (
	ErrValidation          = New(KindValidation, "validation failed")
	ErrEmptyPath           = New(KindEmptyPath, "local file path is required")
	ErrConflict            = New(KindConflict, "resource already exists")
	ErrInvalidCredentials  = New(KindInvalidCredentials, "Invalid user credentials")
	ErrUnauthorized        = New(KindUnauthorized, "Unauthorized request")
	ErrTokenInvalid        = New(KindTokenInvalid, "Invalid refresh token")
	ErrTokenExpired        = New(KindTokenExpired, "Refresh token expired")
	ErrTokenMismatch       = New(KindTokenMismatch, "Refresh token is expired or used")
	ErrNotFound            = New(KindNotFound, "resource not found")
	ErrRateLimited         = New(KindRateLimited, "Too many requests")
	ErrUploadFailure       = New(KindUploadFailure, "media upload failed")
	ErrPersistenceFailure  = New(KindPersistenceFailure, "Something went wrong while saving the user")
	ErrCompensationFailure = New(KindCompensationFailure, "cleanup of uploaded media failed")
	ErrInternal            = New(KindInternal, "Internal server error")
)
