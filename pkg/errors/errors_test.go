package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeInvalidArgument, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeInvalidArgument {
		t.Errorf("expected code %s, got %s", CodeInvalidArgument, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("database connection failed")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "Book not found"},
			expected: "NOT_FOUND: Book not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if errors.Unwrap(appErr) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"not found", NotFound("Book not found"), CodeNotFound, http.StatusNotFound},
		{"not found with id", NotFoundWithID("Member", 7), CodeNotFound, http.StatusNotFound},
		{"already exists", AlreadyExists("Email already in use."), CodeAlreadyExists, http.StatusConflict},
		{"action forbidden", ActionForbidden("Book not available"), CodeFailedPrecondition, http.StatusBadRequest},
		{"invalid argument", InvalidArgument("book_id must be positive", nil), CodeInvalidArgument, http.StatusUnprocessableEntity},
		{"busy", Busy("Book is busy, try again", nil), CodeUnavailable, http.StatusServiceUnavailable},
		{"internal", Internal("boom", nil), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", tt.err.Code, tt.wantCode)
			}
			if tt.err.StatusCode() != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", tt.err.StatusCode(), tt.wantStatus)
			}
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Book", 12345)

	if err.Message != "Book not found" {
		t.Errorf("expected message 'Book not found', got %s", err.Message)
	}
	if err.Details["id"] != int64(12345) {
		t.Errorf("expected id 12345, got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Book" {
		t.Errorf("expected resource 'Book', got %v", err.Details["resource"])
	}
}

func TestRetryable(t *testing.T) {
	if !Busy("busy", nil).Retryable() {
		t.Errorf("Busy should be retryable")
	}
	for _, err := range []*AppError{
		NotFound("x"),
		AlreadyExists("x"),
		ActionForbidden("x"),
		InvalidArgument("x", nil),
		Internal("x", nil),
	} {
		if err.Retryable() {
			t.Errorf("%s should not be retryable", err.Code)
		}
	}
}

func TestIsAppError(t *testing.T) {
	appErr := NotFound("Book not found")
	wrapped := fmt.Errorf("service: %w", appErr)

	if !IsAppError(appErr) {
		t.Errorf("IsAppError() should return true for AppError")
	}
	if !IsAppError(wrapped) {
		t.Errorf("IsAppError() should see through wrapping")
	}
	if IsAppError(errors.New("regular error")) {
		t.Errorf("IsAppError() should return false for regular error")
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Book not found")
	regularErr := errors.New("regular error")

	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}
	if AsAppError(fmt.Errorf("wrapped: %w", appErr)) != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("tx: %w", ActionForbidden("Book not available"))

	if !IsCode(err, CodeFailedPrecondition) {
		t.Errorf("IsCode() should match FAILED_PRECONDITION")
	}
	if IsCode(err, CodeNotFound) {
		t.Errorf("IsCode() should not match NOT_FOUND")
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Errorf("IsCode() should be false for non-AppError")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	jsonStr := string(NotFoundWithID("Book", 1).ToJSON())

	if !strings.Contains(jsonStr, `"code":"NOT_FOUND"`) {
		t.Errorf("ToJSON() should contain error code, got %s", jsonStr)
	}
	if !strings.Contains(jsonStr, "not found") {
		t.Errorf("ToJSON() should contain error message, got %s", jsonStr)
	}
}
