// Package middleware provides the gin middleware chain for the quote API.
package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/jsamuelsen/quotenest/internal/platform/logging"
)

// ContextLogger seeds the request context with logger so later middleware
// and the quote service log through the same handler.
func ContextLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if logger != nil {
			c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		}

		c.Next()
	}
}
