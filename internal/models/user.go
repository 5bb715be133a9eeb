package models

import "time"

// User represents an account holder. It owns categories directly and
// expenses through those categories.
type User struct {
	Base
	Email               string     `gorm:"uniqueIndex;not null" json:"email_address"`
	Password            string     `gorm:"not null" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty"`
}

// Session is one signed-in browser. The session cookie names its ID.
type Session struct {
	Base
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
