// Package auth signs and verifies the tokens carried by session cookies and
// password-reset links.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expensetracker/internal/config"
	"expensetracker/internal/models"
)

const (
	issuer = "expensetracker-api"

	tokenTypeSession = "session"
	tokenTypeReset   = "reset"

	// ResetTokenExpiry bounds how long a password-reset link stays usable.
	ResetTokenExpiry = 15 * time.Minute
)

var (
	// ErrInvalidToken is returned for any token that fails verification.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired is returned for a well-formed token past its expiry.
	ErrTokenExpired = errors.New("token expired")
)

// getJWTKey returns the JWT key from configuration
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

// SessionClaims names the session row a cookie belongs to.
type SessionClaims struct {
	SessionID uint   `json:"sid"`
	UserID    uint   `json:"uid"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// ResetClaims authorizes a single password change. Fingerprint is derived from
// the password hash at issue time, so the token stops verifying once the
// password changes.
type ResetClaims struct {
	UserID      uint   `json:"uid"`
	Fingerprint string `json:"fp"`
	TokenType   string `json:"token_type"`
	jwt.RegisteredClaims
}

// GenerateSessionToken signs a token for session that expires with it.
func GenerateSessionToken(session *models.Session) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: session.ID,
		UserID:    session.UserID,
		TokenType: tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", session.UserID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTKey())
}

// ParseSessionToken verifies a session token and returns its claims.
func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	if err := parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeSession || claims.SessionID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateResetToken signs a password-reset token for user.
func GenerateResetToken(user *models.User) (string, error) {
	now := time.Now()
	claims := &ResetClaims{
		UserID:      user.ID,
		Fingerprint: Fingerprint(user.Password),
		TokenType:   tokenTypeReset,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(getJWTKey())
}

// ParseResetToken verifies a password-reset token. Callers must still compare
// the fingerprint against the user's current password hash.
func ParseResetToken(tokenString string) (*ResetClaims, error) {
	claims := &ResetClaims{}
	if err := parse(tokenString, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeReset || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Fingerprint returns a short digest of a password hash.
func Fingerprint(passwordHash string) string {
	h := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(h[:8])
}

func parse(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTKey(), nil
	}, jwt.WithIssuer(issuer))

	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
