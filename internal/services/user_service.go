package services

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"expensetracker/internal/auth"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
	"expensetracker/internal/validator"
)

const (
	// MinPasswordLength is the shortest password accepted at signup or reset.
	MinPasswordLength = 8

	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
)

// userService handles account-related business logic.
type userService struct {
	db       *gorm.DB
	hashCost int
	now      func() time.Time
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db, hashCost: bcrypt.DefaultCost, now: time.Now}
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new user and seeds the default categories.
func (s *userService) CreateUser(email, password, passwordConfirmation string) (*models.User, error) {
	email = NormalizeEmail(email)

	fields := make(map[string][]string)
	switch {
	case email == "":
		fields["email_address"] = append(fields["email_address"], apperrors.MsgBlank)
	case !validator.Email(email):
		fields["email_address"] = append(fields["email_address"], apperrors.MsgInvalid)
	}
	validatePassword(fields, password, passwordConfirmation)
	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if count > 0 {
		return nil, apperrors.Validation("email_address", apperrors.MsgTaken)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Validation("email_address", apperrors.MsgTaken)
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return seedDefaultCategories(tx, user.ID)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// AttemptLogin checks credentials and tracks consecutive failures. The fifth
// failure in a row locks the account for lockoutDuration.
func (s *userService) AttemptLogin(email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}

	now := s.now()
	if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
		return nil, apperrors.ErrAccountLocked
	}

	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil {
		attempts := user.FailedLoginAttempts + 1
		updates := map[string]interface{}{"failed_login_attempts": attempts}
		locked := attempts >= maxFailedLogins
		if locked {
			updates["failed_login_attempts"] = 0
			updates["locked_until"] = now.Add(lockoutDuration)
		}
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if locked {
			return nil, apperrors.ErrAccountLocked
		}
		return nil, apperrors.ErrInvalidCredentials
	}

	if err := s.db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, nil
}

// IssueResetToken returns a password-reset token for the account with the
// given email.
func (s *userService) IssueResetToken(email string) (*models.User, string, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		return nil, "", err
	}
	token, err := auth.GenerateResetToken(user)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return user, token, nil
}

// ResetPassword consumes a reset token, sets the new password and signs the
// user out everywhere. The token is bound to the old password hash, so it
// cannot be replayed.
func (s *userService) ResetPassword(token, password, passwordConfirmation string) (*models.User, error) {
	claims, err := auth.ParseResetToken(token)
	if err != nil {
		return nil, apperrors.ErrInvalidResetToken
	}

	user, err := s.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidResetToken
		}
		return nil, err
	}
	if claims.Fingerprint != auth.Fingerprint(user.Password) {
		return nil, apperrors.ErrInvalidResetToken
	}

	fields := make(map[string][]string)
	validatePassword(fields, password, passwordConfirmation)
	if len(fields) > 0 {
		return nil, apperrors.ValidationFields(fields)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(user).Updates(map[string]interface{}{
			"password":              string(hashedPassword),
			"failed_login_attempts": 0,
			"locked_until":          nil,
		}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func validatePassword(fields map[string][]string, password, confirmation string) {
	switch {
	case password == "":
		fields["password"] = append(fields["password"], apperrors.MsgBlank)
	case len(password) < MinPasswordLength:
		fields["password"] = append(fields["password"], "is too short (minimum is 8 characters)")
	}
	if password != confirmation {
		fields["password_confirmation"] = append(fields["password_confirmation"], "doesn't match Password")
	}
}
