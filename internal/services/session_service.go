package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
)

// sessionService persists one row per signed-in browser.
type sessionService struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewSessionService creates a new SessionServicer whose sessions last ttl.
func NewSessionService(db *gorm.DB, ttl time.Duration) SessionServicer {
	return &sessionService{db: db, ttl: ttl, now: time.Now}
}

// CreateSession starts a session and returns it with its signed cookie value.
func (s *sessionService) CreateSession(userID uint, userAgent, ipAddress string) (*models.Session, string, error) {
	session := &models.Session{
		UserID:    userID,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	token, err := auth.GenerateSessionToken(session)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return session, token, nil
}

// Authenticate resolves a cookie value to a live session row.
func (s *sessionService) Authenticate(token string) (*models.Session, error) {
	claims, err := auth.ParseSessionToken(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.ErrSessionExpired
		}
		return nil, apperrors.ErrUnauthorized
	}

	var session models.Session
	if err := s.db.Where("id = ? AND user_id = ?", claims.SessionID, claims.UserID).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if session.Expired(s.now()) {
		if err := s.db.Delete(&session).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil, apperrors.ErrSessionExpired
	}
	return &session, nil
}

// DeleteSession ends one session. Deleting a missing row is not an error.
func (s *sessionService) DeleteSession(sessionID uint) error {
	if err := s.db.Delete(&models.Session{}, sessionID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// DeleteUserSessions ends every session of a user.
func (s *sessionService) DeleteUserSessions(userID uint) error {
	if err := s.db.Where("user_id = ?", userID).Delete(&models.Session{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// PurgeExpired deletes sessions past their expiry and reports how many.
func (s *sessionService) PurgeExpired() (int64, error) {
	result := s.db.Where("expires_at <= ?", s.now()).Delete(&models.Session{})
	if result.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	return result.RowsAffected, nil
}
