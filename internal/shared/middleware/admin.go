package middleware

import (
	"catalog-backend/internal/shared/response"

	"github.com/gin-gonic/gin"
)

// AdminMiddleware requires the admin role set by AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get("role")
		if !ok || role != "admin" {
			response.Forbidden(c, "Access denied: admin role required")
			c.Abort()
			return
		}
		c.Next()
	}
}
