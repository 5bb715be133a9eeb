// Package uuid generates time-ordered identifiers and the temporary keys the
// client cache assigns to entities the server has not acknowledged yet.
package uuid

import (
	"strings"

	googleuuid "github.com/google/uuid"
)

// TempPrefix tags a key that was assigned locally. Server keys are decimal
// IDs, so the two can never collide.
const TempPrefix = "tmp_"

// New generates a new UUIDv7 string. UUIDv7 is time-ordered, so keys minted
// later sort after earlier ones.
func New() string {
	id, err := googleuuid.NewV7()
	if err != nil {
		// Fall back to a random UUIDv4 if the clock read fails.
		return googleuuid.New().String()
	}
	return id.String()
}

// NewTempKey returns a fresh temporary key of the form tmp_<uuidv7>.
func NewTempKey() string {
	return TempPrefix + New()
}

// IsTempKey reports whether key was produced by NewTempKey.
func IsTempKey(key string) bool {
	return strings.HasPrefix(key, TempPrefix) && IsValid(strings.TrimPrefix(key, TempPrefix))
}

// IsValid checks if a string is a valid UUID
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
