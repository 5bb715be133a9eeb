package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/logger"
	"expensetracker/internal/mailer"
	"expensetracker/internal/middleware"
	"expensetracker/internal/models"
	"expensetracker/internal/services"
)

// AuthHandler handles signup, session and password-reset requests
type AuthHandler struct {
	userService    services.UserServicer
	sessionService services.SessionServicer
	auditService   services.AuditServicer
	mailer         mailer.Mailer
	appURL         string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(
	userService services.UserServicer,
	sessionService services.SessionServicer,
	auditService services.AuditServicer,
	m mailer.Mailer,
	appURL string,
) *AuthHandler {
	return &AuthHandler{
		userService:    userService,
		sessionService: sessionService,
		auditService:   auditService,
		mailer:         m,
		appURL:         appURL,
	}
}

// SignupUser holds the account fields of a signup request
type SignupUser struct {
	EmailAddress         string `json:"email_address" binding:"required,max=255"`
	Password             string `json:"password" binding:"max=128"`
	PasswordConfirmation string `json:"password_confirmation" binding:"max=128"`
}

// SignupRequest represents the signup request payload
type SignupRequest struct {
	User SignupUser `json:"user"`
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	EmailAddress string `json:"email_address" binding:"required"`
	Password     string `json:"password" binding:"required"`
}

// PasswordResetRequest asks for a reset link to be mailed
type PasswordResetRequest struct {
	EmailAddress string `json:"email_address" binding:"required"`
}

// ConsumeResetRequest sets a new password using a mailed token
type ConsumeResetRequest struct {
	Token                string `json:"token"`
	Password             string `json:"password" binding:"max=128"`
	PasswordConfirmation string `json:"password_confirmation" binding:"max=128"`
}

// UserResponse wraps the signed-in user
type UserResponse struct {
	User models.User `json:"user"`
}

// MessageResponse carries a human-readable notice
type MessageResponse struct {
	Message string `json:"message"`
}

// Signup handles account creation
// @Summary     Sign up
// @Description Create an account, seed its default categories and start a session
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body SignupRequest true "Account details"
// @Success     201 {object} UserResponse "Account created, session cookie set"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /users [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.CreateUser(req.User.EmailAddress, req.User.Password, req.User.PasswordConfirmation)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	h.enqueue(c, mailer.WelcomeJob(user.Email, h.appURL))
	h.auditService.Log(user.ID, models.AuditSignup, models.ResourceUser, user.ID, c.ClientIP(),
		map[string]interface{}{"email_address": user.Email})

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

// Login handles session creation
// @Summary     Sign in
// @Description Authenticate with email and password. Five consecutive failures lock the account for 15 minutes.
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body LoginRequest true "Credentials"
// @Success     200 {object} UserResponse "Signed in, session cookie set"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Failure     423 {object} ErrorResponse "Account locked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /session [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.AttemptLogin(req.EmailAddress, req.Password)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if !h.startSession(c, user) {
		return
	}

	h.auditService.Log(user.ID, models.AuditLogin, models.ResourceUser, user.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout ends the current session
// @Summary     Sign out
// @Description Delete the current session and clear the cookie
// @Tags        auth
// @Security    SessionCookie
// @Success     204 "Signed out"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /session [delete]
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	sessionID, err := getSessionID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.sessionService.DeleteSession(sessionID); err != nil {
		respondWithError(c, err)
		return
	}
	middleware.ClearSessionCookie(c)

	h.auditService.Log(userID, models.AuditLogout, models.ResourceSession, sessionID, c.ClientIP(), nil)

	c.Status(http.StatusNoContent)
}

// Session returns the signed-in user
// @Summary     Current session
// @Description Return the user owning the current session
// @Tags        auth
// @Produce     json
// @Security    SessionCookie
// @Success     200 {object} UserResponse "Current user"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		// A session whose user vanished is no session at all.
		if errors.Is(err, apperrors.ErrUserNotFound) {
			err = apperrors.ErrUnauthorized
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RequestPasswordReset mails a reset link if the account exists
// @Summary     Request password reset
// @Description Always succeeds so that account existence is not revealed
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body PasswordResetRequest true "Email address"
// @Success     200 {object} MessageResponse "Instructions sent"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Router      /passwords [post]
func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	user, token, err := h.userService.IssueResetToken(req.EmailAddress)
	switch {
	case err == nil:
		h.enqueue(c, mailer.PasswordResetJob(user.Email, h.appURL, token))
	case !errors.Is(err, apperrors.ErrUserNotFound):
		middleware.LogError(c, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password reset instructions sent (if user with that email address exists).",
	})
}

// ResetPassword consumes a reset token
// @Summary     Reset password
// @Description Set a new password using a mailed token and sign out every session
// @Tags        auth
// @Accept      json
// @Produce     json
// @Param       request body ConsumeResetRequest true "Token and new password"
// @Success     200 {object} MessageResponse "Password updated"
// @Failure     400 {object} ErrorResponse "Invalid or expired token"
// @Failure     422 {object} ErrorResponse "Validation failed"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /passwords/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ConsumeResetRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}
	if req.Token == "" {
		respondWithError(c, apperrors.ErrInvalidResetToken)
		return
	}

	user, err := h.userService.ResetPassword(req.Token, req.Password, req.PasswordConfirmation)
	if err != nil {
		respondWithError(c, err)
		return
	}
	middleware.ClearSessionCookie(c)

	h.auditService.Log(user.ID, models.AuditPasswordReset, models.ResourceUser, user.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset."})
}

// startSession creates a session row for user and sets the cookie. It writes
// the error response itself and reports whether the caller may continue.
func (h *AuthHandler) startSession(c *gin.Context, user *models.User) bool {
	_, token, err := h.sessionService.CreateSession(user.ID, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		respondWithError(c, err)
		return false
	}
	middleware.SetSessionCookie(c, token)
	return true
}

// enqueue hands a mail job to the mailer. Delivery problems never fail the
// request that triggered them.
func (h *AuthHandler) enqueue(c *gin.Context, job mailer.Job) {
	if err := h.mailer.Send(c.Request.Context(), job); err != nil {
		logger.Named("auth").Errorw("failed to enqueue mail job",
			"kind", job.Kind,
			"to", job.To,
			"error", err,
		)
	}
}

// ErrorDetail represents the inner error object in an error response.
type ErrorDetail struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}
