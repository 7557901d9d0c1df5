package util

import (
	"errors"
	"fmt"
	"net/http"
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

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// NewInvalidTransition signals a requested edge absent from the lifecycle
// graph. Permanent; never retried automatically.
func NewInvalidTransition(from, to string) error {
	return NewDomainError("INVALID_TRANSITION",
		fmt.Sprintf("transition %s -> %s is not allowed", from, to),
		http.StatusUnprocessableEntity,
		map[string]any{"from": from, "to": to})
}

// NewGuardViolation signals that payload or evidence is insufficient for the
// target status. Permanent per attempt; the caller must correct the payload.
func NewGuardViolation(field, reason string) error {
	return NewDomainError("GUARD_VIOLATION",
		fmt.Sprintf("guard failed on %s: %s", field, reason),
		http.StatusUnprocessableEntity,
		map[string]any{"field": field, "reason": reason})
}

// NewConcurrentModification signals a version mismatch on save. Transient;
// the caller reloads and may retry.
func NewConcurrentModification(ticketID string) error {
	return NewDomainError("CONCURRENT_MODIFICATION",
		"ticket was modified concurrently",
		http.StatusConflict,
		map[string]any{"ticket_id": ticketID})
}

// NewPersistenceTimeout signals the store did not respond in time. No
// partial state was applied.
func NewPersistenceTimeout(err error) error {
	return &DomainError{
		Code:       "PERSISTENCE_TIMEOUT",
		Message:    "persistence did not respond in time",
		HTTPStatus: http.StatusGatewayTimeout,
		Err:        err,
	}
}

// NewOtpMismatchOrExpired signals a failed OTP verification. The caller may
// request re-issuance.
func NewOtpMismatchOrExpired() error {
	return NewDomainError("OTP_MISMATCH_OR_EXPIRED",
		"otp code is incorrect or expired",
		http.StatusUnprocessableEntity, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
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
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
