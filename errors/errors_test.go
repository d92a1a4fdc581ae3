package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodePersistenceFailed, "write failed", http.StatusBadGateway)
	if !err.Retryable {
		t.Error("PERSISTENCE_FAILED should be retryable")
	}
}

func TestAppError_InitializationFailed(t *testing.T) {
	cause := fmt.Errorf("store offline")
	err := InitializationFailed(cause)
	if err.Code != ErrCodeInitializationFailed {
		t.Errorf("expected INITIALIZATION_FAILED, got %s", err.Code)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	if err.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", err.HTTPStatus)
	}
}

func TestAppError_PersistenceFailed(t *testing.T) {
	cause := fmt.Errorf("quota exceeded")
	err := PersistenceFailed("write", cause)
	if err.Code != ErrCodePersistenceFailed {
		t.Errorf("expected PERSISTENCE_FAILED, got %s", err.Code)
	}
	if err.Details["operation"] != "write" {
		t.Errorf("expected operation=write, got %v", err.Details["operation"])
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestAppError_SubscriberFailed(t *testing.T) {
	err := SubscriberFailed("sub-1", "boom")
	if err.Code != ErrCodeSubscriberFailed {
		t.Errorf("expected SUBSCRIBER_FAILED, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "boom") {
		t.Errorf("expected recovered value in message, got %q", err.Message)
	}
	if err.Retryable {
		t.Error("SUBSCRIBER_FAILED should not be retryable")
	}
}

func TestAppError_UnknownField(t *testing.T) {
	err := UnknownField("colour")
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", err.HTTPStatus)
	}
	if err.Details["field"] != "colour" {
		t.Errorf("expected field=colour, got %v", err.Details["field"])
	}
}

func TestAppError_NotFound_EmptyID(t *testing.T) {
	err := NotFound("field", "")
	if _, ok := err.Details["id"]; ok {
		t.Error("expected no 'id' key in details when id is empty")
	}
}

func TestAppError_InvalidInput(t *testing.T) {
	err := InvalidInput("fields", "at least one field is required")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "fields" {
		t.Errorf("expected field=fields, got %v", err.Details["field"])
	}

	noField := InvalidInput("", "bad")
	if _, ok := noField.Details["field"]; ok {
		t.Error("expected no 'field' detail when field is empty")
	}
}

func TestAppError_Unauthorized(t *testing.T) {
	err := Unauthorized("token expired")
	if err.Code != ErrCodeUnauthorized || err.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("unexpected error %+v", err)
	}
	if err.Retryable {
		t.Error("UNAUTHORIZED should not be retryable")
	}
}

func TestAppError_Internal(t *testing.T) {
	cause := fmt.Errorf("nil map")
	err := Internal(cause)
	if err.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", err.Code)
	}
	if err.Cause != cause {
		t.Error("expected cause to be set")
	}
	if err.Retryable {
		t.Error("Internal should NOT be retryable")
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{"without cause", New(ErrCodeNotReady, "loading", 503), "NOT_READY: loading"},
		{"with cause", New(ErrCodeInternal, "oops", 500).WithCause(fmt.Errorf("root")), "INTERNAL_ERROR: oops (cause: root)"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.err.Error(); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad", 400).
		WithDetails(map[string]any{"a": 1}).
		WithDetail("b", 2)
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("expected merged details, got %v", err.Details)
	}
}

func TestAppError_IsMatchesByCode(t *testing.T) {
	wrapped := fmt.Errorf("flush: %w", PersistenceFailed("write", fmt.Errorf("x")))
	if !stderrors.Is(wrapped, New(ErrCodePersistenceFailed, "", 0)) {
		t.Error("expected errors.Is to match by code")
	}
	if stderrors.Is(wrapped, New(ErrCodeInitializationFailed, "", 0)) {
		t.Error("expected errors.Is not to match a different code")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", UnknownField("x"))
	if !HasCode(err, ErrCodeUnknownField) {
		t.Error("expected HasCode to find wrapped code")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeUnknownField) {
		t.Error("expected HasCode false for non-AppError")
	}
}

func TestIsRetryableCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeInitializationFailed, true},
		{ErrCodePersistenceFailed, true},
		{ErrCodeTimeout, true},
		{ErrCodeSubscriberFailed, false},
		{ErrCodeInvalidInput, false},
		{ErrCodeInternal, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			if got := IsRetryableCode(tc.code); got != tc.want {
				t.Errorf("IsRetryableCode(%s) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestToResponse(t *testing.T) {
	err := PersistenceFailed("erase", nil)
	resp := err.ToResponse()
	if resp.Error.Code != ErrCodePersistenceFailed {
		t.Errorf("expected code in response, got %s", resp.Error.Code)
	}
	if !resp.Error.Retryable {
		t.Error("expected retryable in response")
	}
	if resp.Error.Details["operation"] != "erase" {
		t.Errorf("expected details in response, got %v", resp.Error.Details)
	}
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(fmt.Errorf("wrap: %w", NotFound("field", "x")))
	if !ok || appErr.Code != ErrCodeNotFound {
		t.Errorf("expected wrapped NotFound, got %v, %v", appErr, ok)
	}
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("expected false for plain error")
	}
	if IsAppError(nil) {
		t.Error("expected IsAppError(nil) to be false")
	}
}

func TestFrom(t *testing.T) {
	if got := From(fmt.Errorf("plain")); got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR for plain error, got %s", got.Code)
	}
	orig := Timeout("wait")
	if got := From(orig); got != orig {
		t.Error("expected From to return the same AppError")
	}
}
