package testutil

import (
	"errors"
	"slices"
	"testing"

	apperrors "expensetracker/internal/errors"
)

// AssertAppError checks that err is an *AppError with the expected code.
func AssertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected AppError with code %q, got nil", expectedCode)
	}

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *AppError, got %T: %v", err, err)
	}

	if appErr.Code != expectedCode {
		t.Errorf("expected error code %q, got %q (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// AssertFieldError checks for a VALIDATION_FAILED error carrying msg on field.
func AssertFieldError(t *testing.T, err error, field, msg string) {
	t.Helper()
	AssertAppError(t, err, apperrors.ErrValidation.Code)

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		return
	}
	if !slices.Contains(appErr.Fields[field], msg) {
		t.Errorf("expected %q on field %q, got %v", msg, field, appErr.Fields)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
