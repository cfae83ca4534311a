package middleware

import (
	"errors"
	"net/http"
	"strings"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/services"

	"github.com/gin-gonic/gin"
)

const (
	ContextIdentity = "identity"
	ContextRole     = "role"
)

func AuthMiddleware(authService services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header format"})
			c.Abort()
			return
		}

		claims, err := authService.VerifyAccessToken(parts[1])
		if err != nil {
			status := http.StatusUnauthorized
			message := "invalid token"
			if errors.Is(err, services.ErrExpiredToken) {
				message = "token expired"
			}
			c.JSON(status, gin.H{"error": message})
			c.Abort()
			return
		}

		c.Set(ContextIdentity, claims.Subject)
		c.Set(ContextRole, claims.Role)
		c.Next()
	}
}

// RequireRole gates a route to one connection class. It assumes
// AuthMiddleware already ran.
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		got, exists := c.Get(ContextRole)
		if !exists || got.(domain.Role) != role {
			c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// IdentityFrom returns the authenticated subject stored by AuthMiddleware.
func IdentityFrom(c *gin.Context) string {
	if v, exists := c.Get(ContextIdentity); exists {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// RoleFrom returns the authenticated role stored by AuthMiddleware.
func RoleFrom(c *gin.Context) domain.Role {
	if v, exists := c.Get(ContextRole); exists {
		if r, ok := v.(domain.Role); ok {
			return r
		}
	}
	return ""
}
