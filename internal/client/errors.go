package client

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is a rejected write. Fields maps request keys to the
// messages the server returned for them.
type ValidationError struct {
	Code    string
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+strings.Join(e.Fields[k], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError means the resource is missing or belongs to someone else.
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AuthError is a rejected or missing session, a locked account, or an
// unusable password-reset token.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// Locked reports whether the account is temporarily locked.
func (e *AuthError) Locked() bool { return e.Code == "ACCOUNT_LOCKED" }

// NetworkError covers transport failures, timeouts, server errors and
// responses that could not be decoded.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
