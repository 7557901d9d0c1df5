package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		code       string
		httpStatus int
	}{
		{"invalid transition", NewInvalidTransition("NEW", "COMPLETED"), "INVALID_TRANSITION", http.StatusUnprocessableEntity},
		{"guard violation", NewGuardViolation("photos", "at least 1 required"), "GUARD_VIOLATION", http.StatusUnprocessableEntity},
		{"concurrent modification", NewConcurrentModification("t1"), "CONCURRENT_MODIFICATION", http.StatusConflict},
		{"persistence timeout", NewPersistenceTimeout(errors.New("deadline")), "PERSISTENCE_TIMEOUT", http.StatusGatewayTimeout},
		{"otp mismatch", NewOtpMismatchOrExpired(), "OTP_MISMATCH_OR_EXPIRED", http.StatusUnprocessableEntity},
		{"not found", NewNotFound("ticket", nil), "NOT_FOUND", http.StatusNotFound},
		{"forbidden", NewForbidden("nope"), "FORBIDDEN", http.StatusForbidden},
		{"unauthorized", NewUnauthorized("nope"), "UNAUTHORIZED", http.StatusUnauthorized},
		{"internal", NewInternalError(errors.New("boom")), "INTERNAL_ERROR", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			domainErr := ToDomainError(tt.err)
			if domainErr.Code != tt.code {
				t.Errorf("code = %s, want %s", domainErr.Code, tt.code)
			}
			if domainErr.HTTPStatus != tt.httpStatus {
				t.Errorf("status = %d, want %d", domainErr.HTTPStatus, tt.httpStatus)
			}
		})
	}
}

func TestGuardViolationDetails(t *testing.T) {
	domainErr := ToDomainError(NewGuardViolation("reasons", "at least 1 required"))
	if domainErr.Details["field"] != "reasons" {
		t.Errorf("field = %v", domainErr.Details["field"])
	}
	if domainErr.Details["reason"] != "at least 1 required" {
		t.Errorf("reason = %v", domainErr.Details["reason"])
	}
}

func TestToDomainErrorWrapsGeneric(t *testing.T) {
	domainErr := ToDomainError(errors.New("raw"))
	if domainErr.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %s, want INTERNAL_ERROR", domainErr.Code)
	}
	if !errors.Is(domainErr, domainErr.Err) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestToDomainErrorPreservesWrapped(t *testing.T) {
	inner := NewInvalidTransition("NEW", "ARRIVED")
	wrapped := fmt.Errorf("handling request: %w", inner)
	domainErr := ToDomainError(wrapped)
	if domainErr.Code != "INVALID_TRANSITION" {
		t.Errorf("code = %s, want INVALID_TRANSITION", domainErr.Code)
	}
}

func TestToDomainErrorNil(t *testing.T) {
	if ToDomainError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
