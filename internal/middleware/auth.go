package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"expensetracker/internal/config"
	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/models"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "et_session"

// Context keys set by AuthMiddleware.
const (
	UserIDKey    = "userID"
	SessionIDKey = "sessionID"
)

// SessionAuthenticator resolves a session token to a live session.
type SessionAuthenticator interface {
	Authenticate(token string) (*models.Session, error)
}

// AuthMiddleware accepts the session cookie or an Authorization: Bearer
// header and sets the user and session IDs in the context.
func AuthMiddleware(sessions SessionAuthenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := SessionToken(c)
		if token == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		session, err := sessions.Authenticate(token)
		if err != nil {
			if errors.Is(err, apperrors.ErrSessionExpired) {
				ClearSessionCookie(c)
			}
			abortWithError(c, err)
			return
		}

		c.Set(UserIDKey, session.UserID)
		c.Set(SessionIDKey, session.ID)
		c.Next()
	}
}

// SessionToken returns the token from the session cookie, falling back to a
// Bearer header.
func SessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && parts[0] == "Bearer" {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// SetSessionCookie stores token in an HttpOnly, SameSite=Lax cookie that
// lives as long as the session.
func SetSessionCookie(c *gin.Context, token string) {
	cfg := config.Get()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, token, int(cfg.SessionTTL.Seconds()), "/", "", cfg.CookieSecure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookieName, "", -1, "/", "", config.Get().CookieSecure, true)
}

func abortWithError(c *gin.Context, err error) {
	status, body := ErrorBody(err)
	c.AbortWithStatusJSON(status, body)
}
