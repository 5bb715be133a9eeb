package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS lets the single-page frontend at origin call the API with cookies.
// An empty origin disables the headers.
func CORS(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin == "" || c.GetHeader("Origin") != origin {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Set("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
