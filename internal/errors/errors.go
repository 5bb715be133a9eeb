// Package errors provides custom error types for the ExpenseTracker API.
// All service-layer errors should use AppError so that responses stay
// consistent and never leak internal details to clients.
package errors

import (
	"net/http"
	"sort"
	"strings"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, optional field-keyed messages,
// and an optional internal error.
type AppError struct {
	Code       string              `json:"code"`
	Message    string              `json:"message"`
	Fields     map[string][]string `json:"fields,omitempty"`
	StatusCode int                 `json:"-"`
	Internal   error               `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is(err, ErrCategoryNotFound) matches copies made by Wrap/WithMessage.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Validation creates a validation error carrying a single field message.
func Validation(field, message string) *AppError {
	return ValidationFields(map[string][]string{field: {message}})
}

// ValidationFields creates a validation error from a set of field messages.
// The top-level message joins every field message in field order.
func ValidationFields(fields map[string][]string) *AppError {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		for _, msg := range fields[k] {
			parts = append(parts, k+" "+msg)
		}
	}

	message := ErrValidation.Message
	if len(parts) > 0 {
		message = strings.Join(parts, ", ")
	}
	return &AppError{
		Code:       ErrValidation.Code,
		Message:    message,
		Fields:     fields,
		StatusCode: ErrValidation.StatusCode,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Try another email address or password", StatusCode: http.StatusUnauthorized}
	ErrSessionExpired     = &AppError{Code: "SESSION_EXPIRED", Message: "Your session has expired, please sign in again", StatusCode: http.StatusUnauthorized}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is temporarily locked, try again later", StatusCode: http.StatusLocked}
	ErrInvalidResetToken  = &AppError{Code: "INVALID_RESET_TOKEN", Message: "Password reset link is invalid or has expired", StatusCode: http.StatusBadRequest}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrValidation     = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed", StatusCode: http.StatusUnprocessableEntity}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
)

// Category errors.
var (
	ErrCategoryNotFound = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Could not find requested category, or it doesn't belong to the user", StatusCode: http.StatusNotFound}
)

// Expense errors.
var (
	ErrExpenseNotFound = &AppError{Code: "EXPENSE_NOT_FOUND", Message: "Could not find requested expense, or it doesn't belong to the user", StatusCode: http.StatusNotFound}
)

// Field messages shared by the services.
const (
	MsgBlank           = "can't be blank"
	MsgTaken           = "has already been taken"
	MsgInvalid         = "is invalid"
	MsgParentInvalid   = "must reference one of your categories"
	MsgParentCycle     = "The parent already exists in the hierarchy"
	MsgPositionsLength = "must have the same number of entries as ids"
)
