package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"expensetracker/internal/config"
	"expensetracker/internal/models"
)

func init() {
	config.Set(&config.Config{Env: "test", JWTSecret: "test-secret"})
}

func TestSessionToken_RoundTrip(t *testing.T) {
	session := &models.Session{UserID: 7, ExpiresAt: time.Now().Add(time.Hour)}
	session.ID = 42

	token, err := GenerateSessionToken(session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseSessionToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.SessionID != 42 || claims.UserID != 7 {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestSessionToken_Expired(t *testing.T) {
	session := &models.Session{UserID: 7, ExpiresAt: time.Now().Add(-time.Minute)}
	session.ID = 1

	token, err := GenerateSessionToken(session)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseSessionToken(token); err != ErrTokenExpired {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSessionToken_RejectsResetToken(t *testing.T) {
	user := &models.User{Password: "hash"}
	user.ID = 3

	token, err := GenerateResetToken(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseSessionToken(token); err == nil {
		t.Error("expected reset token to be rejected as a session token")
	}
}

func TestSessionToken_WrongKey(t *testing.T) {
	claims := &SessionClaims{
		SessionID: 1,
		UserID:    1,
		TokenType: tokenTypeSession,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    issuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseSessionToken(token); err == nil {
		t.Error("expected token signed with another key to be rejected")
	}
}

func TestResetToken_Fingerprint(t *testing.T) {
	user := &models.User{Password: "$2a$10$original"}
	user.ID = 9

	token, err := GenerateResetToken(user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ParseResetToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.UserID != 9 {
		t.Errorf("expected user 9, got %d", claims.UserID)
	}
	if claims.Fingerprint != Fingerprint("$2a$10$original") {
		t.Error("fingerprint should match the hash the token was issued for")
	}
	if claims.Fingerprint == Fingerprint("$2a$10$changed") {
		t.Error("fingerprint should differ once the password hash changes")
	}
}

func TestParseResetToken_Garbage(t *testing.T) {
	if _, err := ParseResetToken("not-a-token"); err != ErrInvalidToken {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
