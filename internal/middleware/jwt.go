package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/teamrally/backend/internal/auth"
	"github.com/teamrally/backend/pkg/response"
)

const (
	// ContextUserID is the key for participant ID in gin context.
	ContextUserID = "user_id"
	// ContextUserRole is the key for participant role in gin context.
	ContextUserRole = "user_role"
	// ContextUsername is the key for participant username in gin context.
	ContextUsername = "username"
)

// JWT returns a middleware that validates JWT and sets participant claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)
		c.Set(ContextUsername, claims.Username)
		c.Next()
	}
}
