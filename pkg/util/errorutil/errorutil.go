package errorutil

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
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

const (
	CodeValidationFailed            = "VALIDATION_FAILED"
	CodeNotFound                    = "NOT_FOUND"
	CodeUnauthorized                = "UNAUTHORIZED"
	CodeForbidden                   = "FORBIDDEN"
	CodeConflict                    = "CONFLICT"
	CodeQuotaExceeded               = "QUOTA_EXCEEDED"
	CodeMalformedEvent              = "MALFORMED_EVENT"
	CodeInvalidSignature            = "INVALID_SIGNATURE"
	CodeRateLimited                 = "RATE_LIMITED"
	CodeIdentityProviderUnavailable = "IDENTITY_PROVIDER_UNAVAILABLE"
	CodeInternal                    = "INTERNAL_ERROR"
)

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

// NewQuotaExceeded is returned when a free-tier user is at the task limit. The code is
// distinct from FORBIDDEN so clients can route the user to the subscription flow.
func NewQuotaExceeded(limit int) error {
	return NewDomainError(CodeQuotaExceeded,
		fmt.Sprintf("Free users can only create up to %d tasks. Please subscribe for more.", limit),
		http.StatusForbidden,
		map[string]any{"limit": limit})
}

func NewMalformedEvent(message string) error {
	return NewDomainError(CodeMalformedEvent, message, http.StatusBadRequest, nil)
}

func NewInvalidSignature(err error) error {
	return &DomainError{
		Code:       CodeInvalidSignature,
		Message:    "webhook signature verification failed",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewRateLimited() error {
	return NewDomainError(CodeRateLimited, "too many requests", http.StatusTooManyRequests, nil)
}

// NewIdentityProviderUnavailable hides the provider failure from the caller.
func NewIdentityProviderUnavailable(err error) error {
	return &DomainError{
		Code:       CodeIdentityProviderUnavailable,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
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
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
		return NewNotFound("resource", nil).(*DomainError)
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
