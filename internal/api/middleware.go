package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/myownradio/channel-bot/internal/auth"
)

// securityHeaders adds standard security headers to every response,
// adapted from the teacher's internal/radio.SecurityHeadersMiddleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// authRequired enforces JWT authentication via Authorization: Bearer <token>,
// adapted from the teacher's internal/radio.AuthRequired.
func authRequired(a *auth.Auth) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(401, gin.H{"status": "error", "error": "authentication required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(401, gin.H{"status": "error", "error": "authentication required"})
			return
		}

		if _, err := a.ValidateToken(strings.TrimSpace(parts[1])); err != nil {
			c.AbortWithStatusJSON(401, gin.H{"status": "error", "error": "invalid or expired token"})
			return
		}

		c.Next()
	}
}
