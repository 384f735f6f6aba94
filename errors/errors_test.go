package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
	err = New(ErrCodeConfiguration, "bad", http.StatusInternalServerError)
	if err.Retryable {
		t.Error("CONFIGURATION_ERROR should not be retryable")
	}
}

func TestConfiguration(t *testing.T) {
	err := Configuration("dependencies", "must be a string or a list")
	if err.Code != ErrCodeConfiguration {
		t.Errorf("expected CONFIGURATION_ERROR, got %s", err.Code)
	}
	if err.Details["field"] != "dependencies" {
		t.Errorf("expected field detail, got %v", err.Details)
	}
	if !strings.Contains(err.Error(), `"dependencies"`) {
		t.Errorf("expected field name in message, got %q", err.Error())
	}
	if !IsFatal(err) {
		t.Error("configuration errors are fatal")
	}
}

func TestConfiguration_NoField(t *testing.T) {
	err := Configuration("", "config file not found")
	if _, ok := err.Details["field"]; ok {
		t.Error("expected no field detail")
	}
	if err.Message != "config file not found" {
		t.Errorf("unexpected message %q", err.Message)
	}
}

func TestResolutionFailed(t *testing.T) {
	cause := fmt.Errorf("no instances")
	err := ResolutionFailed("A", "1.0", cause)
	if err.Code != ErrCodeResolutionFailed {
		t.Errorf("expected RESOLUTION_FAILED, got %s", err.Code)
	}
	if !strings.Contains(err.Message, "A[1.0]") {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause to be unwrappable")
	}
	if IsFatal(err) {
		t.Error("resolution failures are not fatal")
	}
}

func TestDownstreamFailure(t *testing.T) {
	err := DownstreamFailure("A[1.0, http://h:1]", Timeout("GET"))
	if err.HTTPStatus != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", err.HTTPStatus)
	}
	if !HasCode(err, ErrCodeDownstreamFailure) {
		t.Error("expected DOWNSTREAM_FAILURE")
	}
	if !HasCode(err, ErrCodeTimeout) {
		t.Error("expected nested TIMEOUT to be found")
	}
	if HasCode(err, ErrCodeConfiguration) {
		t.Error("unexpected CONFIGURATION_ERROR")
	}
}

func TestHandlerFailure(t *testing.T) {
	err := HandlerFailure(fmt.Errorf("boom"))
	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", err.HTTPStatus)
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("expected cause in error string, got %q", err.Error())
	}
}

func TestHasCode_Wrapped(t *testing.T) {
	inner := Configuration("service", "required")
	wrapped := fmt.Errorf("loading: %w", inner)
	if !HasCode(wrapped, ErrCodeConfiguration) {
		t.Error("expected code through fmt wrapping")
	}
	if HasCode(fmt.Errorf("plain"), ErrCodeConfiguration) {
		t.Error("plain errors carry no code")
	}
	if HasCode(nil, ErrCodeConfiguration) {
		t.Error("nil carries no code")
	}
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", MissingField("service"))
	appErr, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AppError")
	}
	if appErr.Code != ErrCodeMissingField {
		t.Errorf("expected MISSING_FIELD, got %s", appErr.Code)
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("plain error is not an AppError")
	}
}

func TestToResponse(t *testing.T) {
	resp := ConnectionFailed("A").WithDetail("address", "http://h:1").ToResponse()
	if resp.Error.Code != ErrCodeConnectionFailed {
		t.Errorf("expected CONNECTION_FAILED, got %s", resp.Error.Code)
	}
	if !resp.Error.Retryable {
		t.Error("expected retryable")
	}
	if resp.Error.Details["address"] != "http://h:1" {
		t.Errorf("expected address detail, got %v", resp.Error.Details)
	}
}

func TestWithCause(t *testing.T) {
	cause := fmt.Errorf("root")
	err := Internal(nil).WithCause(cause)
	if stderrors.Unwrap(err) != cause {
		t.Error("expected WithCause to set the cause")
	}
	if ServiceUnavailable("consul").Code != ErrCodeServiceUnavailable {
		t.Error("expected SERVICE_UNAVAILABLE")
	}
	if Validation("bad").HTTPStatus != http.StatusBadRequest {
		t.Error("expected 400 for validation")
	}
}
