package middleware

import (
	"net/http"

	"github.com/arencloud/stackdeck/internal/logging"

	"github.com/gin-gonic/gin"
)

// Recoverer turns a handler panic into a 500 JSON response.
func Recoverer(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("panic recovered", "error", rec, "path", c.Request.URL.Path)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
		}()
		c.Next()
	}
}
