package domain

import (
	"errors"
	"fmt"
)

// ErrorCode represents a semantic classification shared across transport layers.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalid      ErrorCode = "INVALID"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal     ErrorCode = "INTERNAL"
)

// Error represents a domain-level error.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewError builds a domain error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with a domain classification.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Authentication and token failures. Each one is terminal for the current
// request; nothing below is retried internally.
var (
	ErrNoToken            = NewError(ErrCodeUnauthorized, "missing bearer token")
	ErrInvalidToken       = NewError(ErrCodeUnauthorized, "invalid token")
	ErrTokenExpired       = NewError(ErrCodeUnauthorized, "token expired")
	ErrWrongTokenType     = NewError(ErrCodeUnauthorized, "wrong token type")
	ErrInvalidUser        = NewError(ErrCodeUnauthorized, "user no longer exists or is inactive")
	ErrInvalidCredentials = NewError(ErrCodeUnauthorized, "invalid email or password")
	ErrNotAuthenticated   = NewError(ErrCodeUnauthorized, "not authenticated")
	ErrAccountDeactivated = NewError(ErrCodeForbidden, "account is deactivated")
)

// Authorization failures.
var (
	ErrForbidden     = NewError(ErrCodeForbidden, "access denied")
	ErrAdminRequired = NewError(ErrCodeForbidden, "admin role required")
)

// Resource failures.
var (
	ErrUserNotFound   = NewError(ErrCodeNotFound, "user not found")
	ErrTaskNotFound   = NewError(ErrCodeNotFound, "task not found")
	ErrDuplicateEmail = NewError(ErrCodeConflict, "email already registered")
	ErrInvalidPayload = NewError(ErrCodeInvalid, "invalid payload")
)

// IsDomainError helps checking error codes.
func IsDomainError(err error, code ErrorCode) bool {
	var dErr *Error
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}
