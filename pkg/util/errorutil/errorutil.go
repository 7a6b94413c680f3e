package errorutil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes exposed to API clients.
const (
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeDuplicateEmail     = "DUPLICATE_EMAIL"
	CodeEmailNotFound      = "EMAIL_NOT_FOUND"
	CodeAmbiguousEmail     = "AMBIGUOUS_EMAIL"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidToken       = "INVALID_TOKEN"
	CodeMissingToken       = "MISSING_TOKEN"
	CodeSessionNotFound    = "SESSION_NOT_FOUND"
	CodeUpdateFailed       = "UPDATE_FAILED"
	CodeDeletionFailed     = "DELETION_FAILED"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeCacheUnavailable   = "CACHE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
	CodeInternal           = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError by code so callers can use errors.Is with the constructors below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewDuplicateEmail() error {
	return NewDomainError(CodeDuplicateEmail, "email already exists", http.StatusBadRequest, nil)
}

func NewEmailNotFound() error {
	return NewDomainError(CodeEmailNotFound, "email not found", http.StatusBadRequest, nil)
}

func NewAmbiguousEmail() error {
	return NewDomainError(CodeAmbiguousEmail, "multiple users found", http.StatusBadRequest, nil)
}

func NewInvalidCredentials() error {
	return NewDomainError(CodeInvalidCredentials, "incorrect password", http.StatusBadRequest, nil)
}

// NewInvalidToken keeps the validation sub-kind in details; clients only see a 401.
func NewInvalidToken(reason error) error {
	de := NewDomainError(CodeInvalidToken, "Invalid token", http.StatusUnauthorized, nil)
	if reason != nil {
		de.Details = map[string]any{"reason": reason.Error()}
		de.Err = reason
	}
	return de
}

func NewMissingToken(message string) error {
	return NewDomainError(CodeMissingToken, message, http.StatusUnauthorized, nil)
}

func NewSessionNotFound() error {
	return NewDomainError(CodeSessionNotFound, "session not found", http.StatusBadRequest, nil)
}

func NewUpdateFailed(err error) error {
	return &DomainError{
		Code:       CodeUpdateFailed,
		Message:    "User info update failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewDeletionFailed(err error) error {
	return &DomainError{
		Code:       CodeDeletionFailed,
		Message:    "User deletion failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewStoreUnavailable(err error) error {
	return &DomainError{
		Code:       CodeStoreUnavailable,
		Message:    "user store unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewCacheUnavailable(err error) error {
	return &DomainError{
		Code:       CodeCacheUnavailable,
		Message:    "session cache unavailable",
		HTTPStatus: http.StatusServiceUnavailable,
		Err:        err,
	}
}

func NewTimeout(err error) error {
	return &DomainError{
		Code:       CodeTimeout,
		Message:    "upstream timeout",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(err).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}
