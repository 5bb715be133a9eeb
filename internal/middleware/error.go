package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/logger"
)

// ErrorHandler returns a Gin middleware that converts errors set on the Gin
// context into consistent JSON error responses. AppErrors are returned with
// their code and message; unexpected errors are logged and return a generic
// internal error to avoid leaking details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		// Process the last error (most relevant in a middleware chain)
		err := c.Errors.Last().Err
		logError(c, err)
		status, body := ErrorBody(err)
		c.JSON(status, body)
	}
}

// ErrorBody maps err to its status code and {"error": {...}} payload.
// Anything that is not an AppError becomes a generic internal error.
func ErrorBody(err error) (int, gin.H) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		appErr = apperrors.ErrInternalServer
	}

	detail := gin.H{
		"code":    appErr.Code,
		"message": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		detail["fields"] = appErr.Fields
	}
	return appErr.StatusCode, gin.H{"error": detail}
}

// logError records internal causes. Client errors without one are not logged.
func logError(c *gin.Context, err error) {
	log := logger.Named("http")

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		if appErr.Internal != nil {
			log.Errorw("app error",
				"code", appErr.Code,
				"message", appErr.Message,
				"internal", appErr.Internal.Error(),
				"path", c.Request.URL.Path,
			)
		}
		return
	}

	log.Errorw("unexpected error",
		"error", err.Error(),
		"path", c.Request.URL.Path,
		"method", c.Request.Method,
	)
}

// LogError is logError for handlers that write their own response.
func LogError(c *gin.Context, err error) {
	logError(c, err)
}
