package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "expensetracker/internal/errors"
	"expensetracker/internal/middleware"
	"expensetracker/internal/validator"
)

// getUserID extracts the authenticated user ID from the Gin context.
// Returns ErrUnauthorized if not present.
func getUserID(c *gin.Context) (uint, error) {
	userID, exists := c.Get(middleware.UserIDKey)
	if !exists {
		return 0, apperrors.ErrUnauthorized
	}
	return userID.(uint), nil
}

// getSessionID extracts the current session ID from the Gin context.
func getSessionID(c *gin.Context) (uint, error) {
	sessionID, exists := c.Get(middleware.SessionIDKey)
	if !exists {
		return 0, apperrors.ErrUnauthorized
	}
	return sessionID.(uint), nil
}

// parsePathID parses a uint path parameter.
// Returns ErrInvalidInput if the parameter is not a valid positive integer.
//
//nolint:unparam // param is intentionally generic for reuse across handlers with different path params
func parsePathID(c *gin.Context, param string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+param)
	}
	return uint(id), nil
}

// bindJSON decodes the request body into req, translating binding failures
// into field-keyed validation errors.
func bindJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return validator.Translate(err)
	}
	return nil
}

// respondWithError writes a consistent JSON error response. AppErrors keep
// their status code, code, message and field messages. Anything else is
// logged and returned as a generic internal server error.
func respondWithError(c *gin.Context, err error) {
	middleware.LogError(c, err)
	status, body := middleware.ErrorBody(err)
	c.JSON(status, body)
}
